package services

import (
	"time"

	"sales-forecaster/pkg/models"
)

// DateRange は start から end までの日付を1日刻みで返します（両端を含む）。
// end が start より前の場合は空のスライスです。
func DateRange(start, end time.Time) []time.Time {
	s := day(start)
	e := day(end)
	if e.Before(s) {
		return []time.Time{}
	}
	out := make([]time.Time, 0, int(e.Sub(s).Hours()/24)+1)
	for cur := s; !cur.After(e); cur = cur.AddDate(0, 0, 1) {
		out = append(out, cur)
	}
	return out
}

// BuildFeatures derives one FeatureRow per date. The promotion flag is always false.
func BuildFeatures(dates []time.Time, storeNbr, itemNbr int64) []models.FeatureRow {
	rows := make([]models.FeatureRow, len(dates))
	for i, d := range dates {
		_, week := d.ISOWeek()
		rows[i] = models.FeatureRow{
			Date:        day(d),
			StoreNbr:    storeNbr,
			ItemNbr:     itemNbr,
			OnPromotion: false,
			Year:        d.Year(),
			Month:       int(d.Month()),
			DayOfWeek:   mondayFirstWeekday(d),
			WeekOfYear:  week,
		}
	}
	return rows
}

// FeatureMatrix returns the rows as model input vectors.
func FeatureMatrix(rows []models.FeatureRow) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Vector()
	}
	return out
}

// mondayFirstWeekday maps Monday..Sunday to 0..6.
func mondayFirstWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func day(t time.Time) time.Time { return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC) }
