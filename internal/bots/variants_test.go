package bots

import (
	"testing"
	"time"
)

func sentGroupText(tr *fakeTransport, text string) bool {
	for _, s := range tr.groupTexts() {
		if s.text == text {
			return true
		}
	}
	return false
}

func TestCalculatorAnswersPromptAndDebounces(t *testing.T) {
	tr := newFakeTransport()
	in := startTestInstance(t, KindCalculator, tr)

	in.SimulateMessage("36828201", "أوجد الناتج:\n2 + 3 * 4", true)
	if !waitFor(time.Second, func() bool { return sentGroupText(tr, "14") }) {
		t.Fatal("expected answer 14 to be sent")
	}

	// A second prompt before the round-end announcement is ignored.
	in.SimulateMessage("36828201", "أوجد الناتج:\n5 + 5", true)
	time.Sleep(30 * time.Millisecond)
	if sentGroupText(tr, "10") {
		t.Fatal("calculator answered while waiting for round end")
	}

	// The winner line alone does not end the round.
	in.SimulateMessage("36828201", "الفائز: فلان", true)
	in.SimulateMessage("36828201", "أوجد الناتج:\n5 + 5", true)
	time.Sleep(30 * time.Millisecond)
	if sentGroupText(tr, "10") {
		t.Fatal("calculator answered before the new-game announcement")
	}

	// Winner plus new-game announcement ends it.
	in.SimulateMessage("36828201", "الفائز: فلان\nاستعد، اللعبة الجديدة ستبدأ!", true)
	in.SimulateMessage("36828201", "أوجد الناتج:\n5 + 5", true)
	if !waitFor(time.Second, func() bool { return sentGroupText(tr, "10") }) {
		t.Fatal("expected answer 10 after round end")
	}
}

func TestCalculatorIgnoresOtherSenders(t *testing.T) {
	tr := newFakeTransport()
	in := startTestInstance(t, KindCalculator, tr)

	in.SimulateMessage("111", "أوجد الناتج:\n2 + 2", true)
	time.Sleep(30 * time.Millisecond)
	if sentGroupText(tr, "4") {
		t.Fatal("calculator answered a non-counterpart sender")
	}
}

func TestWriterEchoesFramedWord(t *testing.T) {
	tr := newFakeTransport()
	in := startTestInstance(t, KindWriter, tr)

	in.SimulateMessage("24062011", "اكتب الكلمة |-->  سريع  <--| الآن", true)
	if !waitFor(time.Second, func() bool { return sentGroupText(tr, "سريع") }) {
		t.Fatal("expected framed word to be echoed")
	}
}

func TestWriterEnglishPromptStripsBraces(t *testing.T) {
	tr := newFakeTransport()
	in := startTestInstance(t, KindWriter, tr)

	in.SimulateMessage("24062011", "Type {now} 8 seconds from now to win!", true)
	if !waitFor(time.Second, func() bool { return sentGroupText(tr, "now") }) {
		t.Fatal("expected brace contents to be echoed")
	}
	if sentGroupText(tr, "{now}") {
		t.Fatal("writer must not echo the braces")
	}
}

func TestWriterSkipsWinAnnouncements(t *testing.T) {
	tr := newFakeTransport()
	in := startTestInstance(t, KindWriter, tr)

	in.SimulateMessage("24062011", "مُبارك! |--> سريع <--| أجبت خلال 2 ثانية", true)
	time.Sleep(30 * time.Millisecond)
	if len(tr.groupTexts()) != 0 {
		t.Error("writer must not echo win announcements")
	}
}

func TestReverseTokens(t *testing.T) {
	got := ReverseTokens("reverse words test")
	if got != "esrever sdrow tset" {
		t.Errorf("ReverseTokens = %q", got)
	}
	// Token-level reversal is self-inverse.
	if back := ReverseTokens(got); back != "reverse words test" {
		t.Errorf("double reversal = %q", back)
	}
	// Framing characters are stripped before reversing.
	if got := ReverseTokens("|--> abc <--|"); got != "cba" {
		t.Errorf("framed ReverseTokens = %q", got)
	}
}

func TestReverserSkipsWinAnnouncements(t *testing.T) {
	tr := newFakeTransport()
	in := startTestInstance(t, KindReverser, tr)

	announcements := []string{
		"مُبارك! أجبت خلال 2.1 ثانية",
		"حصلت على نقطة",
		"Congrats you figured out the word and gained 5",
	}
	for _, a := range announcements {
		in.SimulateMessage("75423789", a, true)
	}
	time.Sleep(30 * time.Millisecond)
	if n := len(tr.groupTexts()); n != 0 {
		t.Errorf("reverser echoed %d win announcements", n)
	}

	in.SimulateMessage("75423789", "اعكس هذا", true)
	if !waitFor(time.Second, func() bool { return len(tr.groupTexts()) == 1 }) {
		t.Fatal("expected reversed reply")
	}
	if got := tr.groupTexts()[0].text; got != "سكعا اذه" {
		t.Errorf("reversed reply = %q", got)
	}
}

func TestParseTimePrompt(t *testing.T) {
	cases := []struct {
		content string
		word    string
		seconds int
	}{
		{"اكتب {الان} بعد مرور 5 ثانية للفوز", "الان", 5},
		{"!اكتب {الان} بعد مرور 5 ثانية للفوز", "الان", 5},
		{"Type {now} 9 seconds from now to win!", "now", 9},
	}
	for _, tc := range cases {
		word, secs, ok := ParseTimePrompt(tc.content)
		if !ok || word != tc.word || secs != tc.seconds {
			t.Errorf("ParseTimePrompt(%q) = %q %d %v, want %q %d", tc.content, word, secs, ok, tc.word, tc.seconds)
		}
	}

	for _, content := range []string{
		"just chatting",
		"اكتب الان بعد مرور 5 ثانية للفوز", // no braces
	} {
		if _, _, ok := ParseTimePrompt(content); ok {
			t.Errorf("ParseTimePrompt(%q) parsed, want no match", content)
		}
	}
}

func TestTimeResponderOnlyAnswersCounterpart(t *testing.T) {
	tr := newFakeTransport()
	in := startTestInstance(t, KindTime, tr)

	in.SimulateMessage("999", "Type {now} 1 seconds from now to win!", true)
	time.Sleep(1200 * time.Millisecond)
	if sentGroupText(tr, "now") {
		t.Fatal("time responder answered a non-counterpart sender")
	}

	in.SimulateMessage("24062011", "Type {now} 1 seconds from now to win!", true)
	if !waitFor(2*time.Second, func() bool { return sentGroupText(tr, "now") }) {
		t.Fatal("expected timed reply to the counterpart prompt")
	}
}

func TestSendDeadline(t *testing.T) {
	arrival := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	got := SendDeadline(arrival, 10)
	want := arrival.Add(10*time.Second - 150*time.Millisecond)
	if !got.Equal(want) {
		t.Errorf("SendDeadline = %v, want %v", got, want)
	}
}
