package recordings

import (
	"regexp"
	"time"

	"bharatcrm_backend/platform/phone"
)

// Call recorder apps name files in wildly different ways. The extractors
// below cover the formats seen in the field; anything unmatched stays
// unmatched and the recording is kept with a nil phone/date.
var (
	// +919876543210, +44... with optional separators stripped beforehand.
	intlPhonePattern = regexp.MustCompile(`\+\d{11,14}`)
	// Bare Indian mobile number: 10 digits starting 6-9, not part of a
	// longer digit run.
	indianPhonePattern = regexp.MustCompile(`(^|\D)([6-9]\d{9})(\D|$)`)

	// 2023-08-01 or 2023_08_01.
	isoDatePattern = regexp.MustCompile(`(20\d{2})[-_.](\d{2})[-_.](\d{2})`)
	// 230801_142530 (yymmdd_hhmmss, common in Samsung/Xiaomi recorders).
	compactDatePattern = regexp.MustCompile(`(^|\D)(\d{6})_(\d{6})(\D|$)`)
	// 20230801 (yyyymmdd).
	plainDatePattern = regexp.MustCompile(`(^|\D)(20\d{6})(\D|$)`)
)

// ExtractPhone pulls a phone number out of a recording filename, returned
// in normalized form. Empty when no number is recognizable.
func ExtractPhone(fileName string) string {
	if m := intlPhonePattern.FindString(fileName); m != "" {
		return phone.Normalize(m)
	}
	if m := indianPhonePattern.FindStringSubmatch(fileName); m != nil {
		return phone.Normalize(m[2])
	}
	return ""
}

// ExtractDate pulls a recording date out of a filename. Returns false when
// no date pattern matches; callers fall back to the Drive createdTime.
func ExtractDate(fileName string) (time.Time, bool) {
	if m := isoDatePattern.FindStringSubmatch(fileName); m != nil {
		t, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3])
		if err == nil {
			return t, true
		}
	}
	if m := compactDatePattern.FindStringSubmatch(fileName); m != nil {
		t, err := time.Parse("060102_150405", m[2]+"_"+m[3])
		if err == nil {
			return t, true
		}
	}
	if m := plainDatePattern.FindStringSubmatch(fileName); m != nil {
		t, err := time.Parse("20060102", m[2])
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
