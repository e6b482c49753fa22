package dashboard

import (
	"strconv"
	"time"
)

const (
	// TotalLabel keys the single bucket of the "all" view.
	TotalLabel = "รวม"
	// UnknownAdserLabel stands in for rows synced without an adser.
	UnknownAdserLabel = "ไม่ระบุ"
)

var thaiMonthAbbr = [12]string{
	"ม.ค.", "ก.พ.", "มี.ค.", "เม.ย.", "พ.ค.", "มิ.ย.",
	"ก.ค.", "ส.ค.", "ก.ย.", "ต.ค.", "พ.ย.", "ธ.ค.",
}

func dayLabel(t time.Time) string {
	return strconv.Itoa(t.Day())
}

func monthLabel(t time.Time) string {
	return thaiMonthAbbr[t.Month()-1]
}
