package config

import "time"

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultHTTPAddr = ":8080"

	DefaultDBPath = "wolfherd.db"

	DefaultWolfServerURL    = "wss://v3-sio.wolf.live/socket"
	DefaultWolfDialTimeout  = 20 * time.Second
	DefaultWolfReplyTimeout = 15 * time.Second
	DefaultWolfPingInterval = 25 * time.Second

	DefaultActionDelay     = 10 * time.Second
	DefaultFallbackGroupID = "18822804"

	DefaultCalculatorTargetID = "36828201"
	DefaultWriterTargetID     = "24062011"
	DefaultReverserTargetID   = "75423789"
	DefaultTimeTargetID       = "24062011"

	DefaultCalculatorOpener = "!احسب"
	DefaultWriterOpener     = "!كتابه"
	DefaultReverserOpener   = "!bw"
	DefaultTimeOpener       = "!وقت"

	DefaultRaceCounterpartID = "80277459"
	DefaultRaceAlertCmd      = "!س تنبيه"
	DefaultRaceEnergyCmd     = "!س طاقه"
	DefaultRaceGrindCmd      = "!س جلد"
	DefaultRaceTrainCmd      = "!س تدريب كل"

	DefaultAlertsOnMarker     = "التنبيهات مفعلة"
	DefaultAlertsOffMarker    = "التنبيهات معطلة"
	DefaultFullEnergyMarker   = "100%"
	DefaultTrainingDoneMarker = "عاد حيوانك لطاقته الكاملة"
	DefaultRaceBusyMarker     = "لا يمكنك استخدام هذا الأمر أثناء السباق"
	DefaultRaceEndedMarker    = "انتهى السباق وهذه النتائج النهائية"

	DefaultAnnouncement      = "تم تفعيل الحذف التلقائي في هذه المجموعة."
	DefaultThankYouMessage   = "شكراً على الترقية!"
	DefaultAnnounceInterval  = 5 * time.Minute
	DefaultPromotionInterval = 10 * time.Second
	DefaultPromotionBudget   = time.Hour
)

// DefaultExcludedGroupIDs are groups the monitor never follows signals into.
var DefaultExcludedGroupIDs = []string{"9677"}

// DefaultCounterparts maps the known signal-bot ids to the command phrase
// replayed into the announced group.
var DefaultCounterparts = map[string]string{
	"76305584": "!صياد 3",
	"32060007": "!صياد جنوبية ٣",
	"19121683": "!اسرق 5",
	"45578849": "!بطل 5",
}
