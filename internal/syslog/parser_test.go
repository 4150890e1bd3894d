package syslog

import (
	"strconv"
	"testing"
	"time"
)

var testNow = time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)

func TestParse_RFC5424(t *testing.T) {
	raw := `<165>1 2003-10-11T22:14:15.003Z mymachine.example.com evntslog - ID47 [exampleSDID@32473 iut="3"] An application event log entry`
	rec := ParseAt([]byte(raw), "192.168.1.10", 40514, testNow)

	if !rec.IsSyslog {
		t.Fatal("IsSyslog: got false, want true")
	}
	if rec.Priority == nil || *rec.Priority != 165 {
		t.Fatalf("Priority: got %v, want 165", rec.Priority)
	}
	if *rec.Facility != 165>>3 {
		t.Fatalf("Facility: got %d, want %d", *rec.Facility, 165>>3)
	}
	if *rec.Severity != 165&7 {
		t.Fatalf("Severity: got %d, want %d", *rec.Severity, 165&7)
	}
	if rec.Timestamp != "2003-10-11T22:14:15.003+00:00" {
		t.Fatalf("Timestamp: got %q", rec.Timestamp)
	}
	if rec.Hostname == nil || *rec.Hostname != "mymachine.example.com" {
		t.Fatalf("Hostname: got %v", rec.Hostname)
	}
	if rec.AppName == nil || *rec.AppName != "evntslog" {
		t.Fatalf("AppName: got %v", rec.AppName)
	}
	if rec.ProcID != nil {
		t.Fatalf("ProcID: got %v, want nil for '-'", rec.ProcID)
	}
	if rec.MsgID == nil || *rec.MsgID != "ID47" {
		t.Fatalf("MsgID: got %v", rec.MsgID)
	}
	if rec.Message != "An application event log entry" {
		t.Fatalf("Message: got %q", rec.Message)
	}
	if rec.RawMessage != raw {
		t.Fatalf("RawMessage: got %q", rec.RawMessage)
	}
}

func TestParse_RFC5424_NilSDAndDashTimestamp(t *testing.T) {
	raw := `<34>1 - - - - - - hello world`
	rec := ParseAt([]byte(raw), "10.0.0.1", 514, testNow)

	if !rec.IsSyslog {
		t.Fatal("IsSyslog: got false, want true")
	}
	if rec.Hostname != nil || rec.AppName != nil || rec.ProcID != nil || rec.MsgID != nil {
		t.Fatalf("dash fields should be absent: %+v", rec)
	}
	// Receive time stands in for a '-' timestamp.
	if rec.Timestamp != FormatTime(testNow) {
		t.Fatalf("Timestamp: got %q, want receive time %q", rec.Timestamp, FormatTime(testNow))
	}
	if rec.Message != "hello world" {
		t.Fatalf("Message: got %q", rec.Message)
	}
}

func TestParse_RFC3164(t *testing.T) {
	raw := `<34>Oct 11 22:14:15 mymachine su: 'su root' failed`
	rec := ParseAt([]byte(raw), "10.1.2.3", 514, testNow)

	if !rec.IsSyslog {
		t.Fatal("IsSyslog: got false, want true")
	}
	if *rec.Priority != 34 || *rec.Facility != 4 || *rec.Severity != 2 {
		t.Fatalf("pri/fac/sev: got %d/%d/%d, want 34/4/2", *rec.Priority, *rec.Facility, *rec.Severity)
	}
	if rec.Hostname == nil || *rec.Hostname != "mymachine" {
		t.Fatalf("Hostname: got %v", rec.Hostname)
	}
	if rec.AppName == nil || *rec.AppName != "su" {
		t.Fatalf("AppName: got %v", rec.AppName)
	}
	if rec.ProcID != nil {
		t.Fatalf("ProcID: got %v, want nil", rec.ProcID)
	}
	if rec.Message != "'su root' failed" {
		t.Fatalf("Message: got %q", rec.Message)
	}
	// Oct 11 is more than a day past the August reference clock, so the
	// year rolls back.
	if rec.Timestamp != "2025-10-11T22:14:15Z" {
		t.Fatalf("Timestamp: got %q, want 2025-10-11T22:14:15Z", rec.Timestamp)
	}
}

func TestParse_RFC3164_AppWithPID(t *testing.T) {
	raw := `<13>Aug 26 09:30:00 web01 nginx[2412]: GET /index.html 200`
	rec := ParseAt([]byte(raw), "10.0.0.7", 514, testNow)

	if rec.AppName == nil || *rec.AppName != "nginx" {
		t.Fatalf("AppName: got %v", rec.AppName)
	}
	if rec.ProcID == nil || *rec.ProcID != "2412" {
		t.Fatalf("ProcID: got %v", rec.ProcID)
	}
	if rec.Message != "GET /index.html 200" {
		t.Fatalf("Message: got %q", rec.Message)
	}
}

func TestParse_RFC3164_RestWithoutAppTag(t *testing.T) {
	raw := `<13>Aug 26 09:30:00 web01 plain text remainder`
	rec := ParseAt([]byte(raw), "10.0.0.7", 514, testNow)

	// No "APP:" tag in the remainder, so the whole of it is the message.
	if rec.AppName != nil {
		t.Fatalf("AppName: got %v, want nil", rec.AppName)
	}
	if rec.Message != "plain text remainder" {
		t.Fatalf("Message: got %q", rec.Message)
	}
}

func TestParse_RFC3164_YearWraparound(t *testing.T) {
	// Reference clock just after new year: a December timestamp would be
	// ~11 months in the future if the current year were assumed.
	newYear := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	rec := ParseAt([]byte(`<34>Dec 31 23:59:59 host app: msg`), "10.0.0.1", 514, newYear)

	if rec.Timestamp != "2025-12-31T23:59:59Z" {
		t.Fatalf("Timestamp: got %q, want previous year", rec.Timestamp)
	}

	// Less than a day ahead keeps the current year.
	rec = ParseAt([]byte(`<34>Jan  2 10:00:00 host app: msg`), "10.0.0.1", 514, newYear)
	if rec.Timestamp != "2026-01-02T10:00:00Z" {
		t.Fatalf("Timestamp: got %q, want current year", rec.Timestamp)
	}
}

func TestParse_RFC3164_NeverFarFuture(t *testing.T) {
	months := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	for _, mon := range months {
		raw := "<34>" + mon + " 15 12:00:00 host app: msg"
		rec := ParseAt([]byte(raw), "10.0.0.1", 514, testNow)
		ts, err := time.Parse("2006-01-02T15:04:05Z", rec.Timestamp)
		if err != nil {
			t.Fatalf("%s: unparseable timestamp %q: %v", mon, rec.Timestamp, err)
		}
		if ts.Sub(testNow) > 24*time.Hour {
			t.Fatalf("%s: timestamp %q is more than one day in the future", mon, rec.Timestamp)
		}
	}
}

func TestParse_BarePriority(t *testing.T) {
	rec := ParseAt([]byte(`<14>device rebooted`), "10.0.0.9", 33000, testNow)

	if !rec.IsSyslog {
		t.Fatal("IsSyslog: got false, want true")
	}
	if *rec.Priority != 14 || *rec.Facility != 1 || *rec.Severity != 6 {
		t.Fatalf("pri/fac/sev: got %d/%d/%d, want 14/1/6", *rec.Priority, *rec.Facility, *rec.Severity)
	}
	if rec.Message != "device rebooted" {
		t.Fatalf("Message: got %q", rec.Message)
	}

	empty := ParseAt([]byte(`<14>`), "10.0.0.9", 33000, testNow)
	if empty.Message != "(empty)" {
		t.Fatalf("empty body: got %q, want (empty)", empty.Message)
	}
}

func TestParse_BarePriorityOutOfRange(t *testing.T) {
	// <500> is not a valid syslog PRI; the text must stay raw.
	rec := ParseAt([]byte(`<500> not syslog`), "10.0.0.9", 33000, testNow)

	if rec.IsSyslog {
		t.Fatal("IsSyslog: got true, want false")
	}
	if rec.Facility != nil || rec.Severity != nil || rec.Priority != nil {
		t.Fatalf("raw text must not carry syslog codes: %+v", rec)
	}
	if rec.Message != "<500> not syslog" {
		t.Fatalf("Message: got %q", rec.Message)
	}
}

func TestParse_RawText(t *testing.T) {
	rec := ParseAt([]byte("hello"), "10.0.0.5", 9001, testNow)

	if rec.IsSyslog {
		t.Fatal("IsSyslog: got true, want false")
	}
	if rec.Message != "hello" || rec.RawMessage != "hello" {
		t.Fatalf("message: got %q / %q", rec.Message, rec.RawMessage)
	}
	if rec.SourceIP != "10.0.0.5" || rec.SourcePort != 9001 {
		t.Fatalf("source: got %s:%d", rec.SourceIP, rec.SourcePort)
	}
	if rec.Timestamp != FormatTime(testNow) {
		t.Fatalf("Timestamp: got %q, want receive time", rec.Timestamp)
	}
}

func TestParse_EmptyAndWhitespaceInput(t *testing.T) {
	for _, input := range [][]byte{nil, []byte(""), []byte("  \n\t ")} {
		rec := ParseAt(input, "10.0.0.5", 9001, testNow)
		if rec.Message != "(empty message)" || rec.RawMessage != "(empty message)" {
			t.Fatalf("input %q: got message %q, want placeholder", input, rec.Message)
		}
		if rec.IsSyslog {
			t.Fatalf("input %q: IsSyslog true", input)
		}
	}
}

func TestParse_InvalidUTF8FallsBackToLatin1(t *testing.T) {
	// 0xE9 alone is invalid UTF-8 but is 'é' in Latin-1.
	rec := ParseAt([]byte{'c', 'a', 'f', 0xE9}, "10.0.0.5", 9001, testNow)

	if rec.Message != "café" {
		t.Fatalf("Message: got %q, want café", rec.Message)
	}
}

func TestParse_Idempotent(t *testing.T) {
	raw := []byte(`<34>Oct 11 22:14:15 mymachine su: 'su root' failed`)
	a := ParseAt(raw, "10.1.2.3", 514, testNow)
	b := ParseAt(raw, "10.1.2.3", 514, testNow)

	if a.Timestamp != b.Timestamp || a.Message != b.Message || *a.Priority != *b.Priority {
		t.Fatalf("parse not idempotent: %+v vs %+v", a, b)
	}
}

func TestParse_PriorityRecoveryExhaustive(t *testing.T) {
	for pri := 0; pri <= 191; pri++ {
		raw := []byte("<" + strconv.Itoa(pri) + ">1 - - - - - - x")
		rec := ParseAt(raw, "10.0.0.1", 514, testNow)
		if !rec.IsSyslog {
			t.Fatalf("pri %d: not classified as syslog", pri)
		}
		if *rec.Facility != pri>>3 || *rec.Severity != pri&7 {
			t.Fatalf("pri %d: got fac=%d sev=%d", pri, *rec.Facility, *rec.Severity)
		}
	}
}

func TestFacilityAndSeverityNames(t *testing.T) {
	cases := []struct {
		facility int
		want     string
	}{
		{0, "kern"}, {4, "auth"}, {23, "local7"}, {24, "unknown(24)"},
	}
	for _, c := range cases {
		if got := FacilityName(c.facility); got != c.want {
			t.Errorf("FacilityName(%d): got %q, want %q", c.facility, got, c.want)
		}
	}

	if got := SeverityName(2); got != "Critical" {
		t.Errorf("SeverityName(2): got %q, want Critical", got)
	}
	if got := SeverityName(9); got != "unknown(9)" {
		t.Errorf("SeverityName(9): got %q, want unknown(9)", got)
	}
}
