package study

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2023-05-17", "2023-05-17", true},
		{"2023-05-17 14:30", "2023-05-17", true},
		{"2023-05-17 14:30:59", "2023-05-17", true},
		{"  2023-05-17  ", "2023-05-17", true},
		{"", "", false},
		{"   ", "", false},
		{"17/05/2023", "", false},
		{"not a date", "", false},
	}
	for _, c := range cases {
		got, ok := ParseDate(c.in)
		if ok != c.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", c.in, ok, c.ok)
			continue
		}
		if !ok {
			continue
		}
		if got.Format("2006-01-02") != c.want {
			t.Errorf("ParseDate(%q) = %s, want %s", c.in, got, c.want)
		}
		if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
			t.Errorf("ParseDate(%q) not truncated to midnight: %s", c.in, got)
		}
	}
}

func TestParseInt(t *testing.T) {
	if v, ok := ParseInt("4"); !ok || v != 4 {
		t.Errorf("ParseInt(4) = %d, %v", v, ok)
	}
	if v, ok := ParseInt("1.0"); !ok || v != 1 {
		t.Errorf("ParseInt(1.0) = %d, %v", v, ok)
	}
	if _, ok := ParseInt(""); ok {
		t.Error("ParseInt of blank should report false")
	}
	if _, ok := ParseInt("x"); ok {
		t.Error("ParseInt of garbage should report false")
	}
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 5, 29, 0, 0, 0, 0, time.UTC)
	if d := DaysBetween(from, to); d != 28 {
		t.Errorf("DaysBetween = %d, want 28", d)
	}
	if d := DaysBetween(to, from); d != -28 {
		t.Errorf("reversed DaysBetween = %d, want -28", d)
	}
}

func TestAgeMonths_IgnoresDayOfMonth(t *testing.T) {
	dob := time.Date(2022, 1, 31, 0, 0, 0, 0, time.UTC)
	today := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	if m := AgeMonths(dob, today); m != 18 {
		t.Errorf("AgeMonths = %d, want 18", m)
	}
}

func TestDaysToBirthday(t *testing.T) {
	dob := time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC)

	today := time.Date(2023, 7, 3, 0, 0, 0, 0, time.UTC)
	if d := DaysToBirthday(dob, 18, today); d != 7 {
		t.Errorf("before the birthday: got %d, want 7", d)
	}

	today = time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC)
	if d := DaysToBirthday(dob, 18, today); d != -5 {
		t.Errorf("after the birthday: got %d, want -5", d)
	}
}

func TestAddMonthsClampsMonthEnd(t *testing.T) {
	cases := []struct {
		from   string
		months int
		want   string
	}{
		{"2021-08-31", 18, "2023-02-28"},
		{"2022-08-31", 18, "2024-02-29"},
		{"2023-05-31", 1, "2023-06-30"},
		{"2023-01-15", 18, "2024-07-15"},
	}
	for _, c := range cases {
		from, _ := ParseDate(c.from)
		got := AddMonths(from, c.months).Format("2006-01-02")
		if got != c.want {
			t.Errorf("AddMonths(%s, %d) = %s, want %s", c.from, c.months, got, c.want)
		}
	}
}

func TestDaysToBirthdayMonthEndBirth(t *testing.T) {
	dob := time.Date(2021, 8, 31, 0, 0, 0, 0, time.UTC)
	today := time.Date(2023, 2, 26, 0, 0, 0, 0, time.UTC)
	// The 18-month birthday clamps to Feb 28, not Mar 3.
	if d := DaysToBirthday(dob, 18, today); d != 2 {
		t.Errorf("got %d, want 2", d)
	}
}
