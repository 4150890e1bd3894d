package syslog

import "fmt"

// facilityNames maps syslog facility codes to their standard names.
var facilityNames = map[int]string{
	0: "kern", 1: "user", 2: "mail", 3: "daemon",
	4: "auth", 5: "syslog", 6: "lpr", 7: "news",
	8: "uucp", 9: "cron", 10: "authpriv", 11: "ftp",
	12: "ntp", 13: "security", 14: "console", 15: "solaris-cron",
	16: "local0", 17: "local1", 18: "local2", 19: "local3",
	20: "local4", 21: "local5", 22: "local6", 23: "local7",
}

// severityNames maps syslog severity codes to their standard names.
var severityNames = map[int]string{
	0: "Emergency", 1: "Alert", 2: "Critical", 3: "Error",
	4: "Warning", 5: "Notice", 6: "Informational", 7: "Debug",
}

// FacilityName returns the standard name for a facility code.
// Unknown codes render as "unknown(<code>)".
func FacilityName(code int) string {
	if name, ok := facilityNames[code]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", code)
}

// SeverityName returns the standard name for a severity code.
// Unknown codes render as "unknown(<code>)".
func SeverityName(code int) string {
	if name, ok := severityNames[code]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", code)
}

// DecodePriority splits a PRI value into facility and severity.
func DecodePriority(pri int) (facility, severity int) {
	return pri >> 3, pri & 0x07
}
