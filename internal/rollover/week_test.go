package rollover

import (
	"testing"
	"time"

	"github.com/julianstephens/goaltrack/internal/utils"
)

func TestISOWeekMatchesStandardLibrary(t *testing.T) {
	start := utils.Date(2015, time.January, 1)
	for i := 0; i < 365*12; i++ {
		d := start.AddDate(0, 0, i)
		wantYear, wantWeek := d.ISOWeek()
		gotYear, gotWeek := ISO.Week(d)
		if gotYear != wantYear || gotWeek != wantWeek {
			t.Fatalf("ISO.Week(%s) = (%d, %d), want (%d, %d)",
				utils.FormatDate(d), gotYear, gotWeek, wantYear, wantWeek)
		}
	}
}

func TestUSWeek(t *testing.T) {
	tests := []struct {
		date     time.Time
		wantYear int
		wantWeek int
	}{
		// 2023-01-01 is a Sunday
		{utils.Date(2023, 1, 1), 2023, 1},
		{utils.Date(2023, 1, 7), 2023, 1},
		{utils.Date(2023, 1, 8), 2023, 2},
		// 2024-01-01 is a Monday, so week 1 began on 2023-12-31
		{utils.Date(2023, 12, 31), 2024, 1},
		{utils.Date(2024, 1, 6), 2024, 1},
		{utils.Date(2024, 1, 7), 2024, 2},
		{utils.Date(2023, 12, 30), 2023, 52},
	}

	for _, tt := range tests {
		t.Run(utils.FormatDate(tt.date), func(t *testing.T) {
			year, week := US.Week(tt.date)
			if year != tt.wantYear || week != tt.wantWeek {
				t.Errorf("US.Week() = (%d, %d), want (%d, %d)", year, week, tt.wantYear, tt.wantWeek)
			}
		})
	}
}

func TestParseWeekConvention(t *testing.T) {
	tests := []struct {
		in      string
		want    WeekConvention
		wantErr bool
	}{
		{"", ISO, false},
		{"iso", ISO, false},
		{" US ", US, false},
		{"lunar", WeekConvention{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekConvention(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWeekConvention(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWeekConvention(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
