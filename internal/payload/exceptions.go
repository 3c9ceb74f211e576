package payload

// ExceptionCode is a customer-facing delay reason. UnknownExceptionCode
// marks source codes with no mapping; events carrying it are skipped
// rather than failed.
type ExceptionCode struct {
	Code        string
	Description string
}

// UnknownExceptionCode is the sentinel for unmapped source codes.
var UnknownExceptionCode = ExceptionCode{
	Code:        "Unknown",
	Description: "No matching customer exception code found",
}

// IsUnknown reports whether the code is the unmapped sentinel.
func (e ExceptionCode) IsUnknown() bool {
	return e.Code == UnknownExceptionCode.Code
}

var exceptionMapping = map[string]ExceptionCode{
	"ADE":   {Code: "C05", Description: "EXPEDITE DELIVERY, EARLY ARRIVAL"},
	"APP":   {Code: "A1", Description: "MISSED DELIVERY"},
	"BADDA": {Code: "A51", Description: "CARRIER KEYING ERROR"},
	"CAN":   {Code: "CO", Description: "ORDER CANCELLED BY CUSTOMER"},
	"CAR":   {Code: "A91", Description: "MISSED DELIVERY-CARRIER ERROR"},
	"CHO":   {Code: "A42", Description: "HOLIDAY - CLOSED"},
	"CON":   {Code: "AG", Description: "CONSIGNEE RELATED"},
	"COS":   {Code: "S1", Description: "DAMAGED - DELIVERY NOT COMPLETED"},
	"CRD":   {Code: "B02", Description: "APPOINTMENT OR PRE-ARRANGED DELIVERY DATE"},
	"CUP":   {Code: "AJ", Description: "OTHER CARRIER RELATED"},
	"CUS":   {Code: "A40", Description: "SHIPPER RELATED"},
	"CUST":  {Code: "A40", Description: "SHIPPER RELATED"},
	"DAM":   {Code: "A10", Description: "DAMAGED - DELIVERY NOT COMPLETED"},
	"DEL":   {Code: "A33", Description: "OTHER CARRIER RELATED"},
	"DLE":   {Code: "S01", Description: "INCOMPLETE DELIVERY"},
	"FAOUT": {Code: "FOI", Description: "3PL OPS/NETWORK RELATED PROBLEM (FORWARDER ORIGIN ISSUE)"},
	"FTUSP": {Code: "I01", Description: "3PL EDI ISSUE"},
	"HUB":   {Code: "A33", Description: "OTHER CARRIER RELATED"},
	"ICC":   {Code: "AQ", Description: "RECIPIENT UNAVAILABLE-DELIVERY DELAYED"},
	"INCOM": {Code: "A13", Description: "OTHER"},
	"INMIL": {Code: "A51", Description: "CARRIER KEYING ERROR"},
	"INS":   {Code: "A13", Description: "OTHER"},
	"IRRSL": {Code: "A92", Description: "EXCEEDS SERVICE LIMITATION"},
	"LAD":   {Code: "B08", Description: "IMPROPER UNLOADING FACILITY OR EQUIPMENT"},
	"LATEB": {Code: "AW", Description: "PAST CUT-OFF TIME"},
	"LOST":  {Code: "A5", Description: "UNABLE TO LOCATE"},
	"LPU":   {Code: "SOS", Description: "ODM/PLANT/MANUFACTURING LATE HANDOVER"},
	"MI":    {Code: "A30", Description: "MECHANICAL BREAKDOWN"},
	"MISC":  {Code: "BG", Description: "OTHER"},
	"MISCU": {Code: "A95", Description: "PAST CUT-OFF TIME"},
	"MISS":  {Code: "A5", Description: "UNABLE TO LOCATE"},
	"MTT":   {Code: "A33", Description: "OTHER CARRIER RELATED"},
	"NTDT":  {Code: "P01", Description: "PROCESSING DELAY"},
	"OLHNC": {Code: "AW", Description: "PAST CUT-OFF TIME"},
	"OLHNF": {Code: "A33", Description: "OTHER CARRIER RELATED"},
	"OLHNS": {Code: "A98", Description: "FORWARDER CAPACITY ISSUE"},
	"OLHNT": {Code: "AV", Description: "EXCEEDS SERVICE LIMITATION"},
	"OMNIF": {Code: "P01", Description: "PROCESSING DELAY"},
	"OMNII": {Code: "C6", Description: "WAITING SHIPPING INSTRUCTIONS"},
	"PACK":  {Code: "A13", Description: "OTHER"},
	"PUE":   {Code: "A40", Description: "SHIPPER RELATED"},
	"PWD":   {Code: "SOW", Description: "SHIPMENT OVERWEIGHT"},
	"RAD":   {Code: "BK", Description: "PRE-ARRANGED APPOINTMENT"},
	"REALA": {Code: "AJ", Description: "OTHER CARRIER RELATED"},
	"REALR": {Code: "AJ", Description: "OTHER CARRIER RELATED"},
	"REFU":  {Code: "A07", Description: "REFUSED BY CONSIGNEE"},
	"SHI":   {Code: "AM", Description: "SHIPPER RELATED"},
	"SHORT": {Code: "S01", Description: "INCOMPLETE DELIVERY"},
	"SLC":   {Code: "SLD", Description: "SERVICE LEVEL DECREASE"},
	"SOS":   {Code: "A43", Description: "WEATHER OR NATURAL DISASTER RELATED"},
	"SSSF":  {Code: "A12", Description: "PACKAGE SORTED TO WRONG ROUTE"},
	"TFIDI": {Code: "A2", Description: "INCORRECT ADDRESS / UNABLE TO LOCATE"},
	"TFMIS": {Code: "A2", Description: "INCORRECT ADDRESS / UNABLE TO LOCATE"},
	"THEFT": {Code: "019", Description: "CASUALTY LOSS"},
	"URC":   {Code: "A46", Description: "RECIPIENT UNAVAILABLE-DELIVERY DELAYED"},
	"WADD":  {Code: "A03", Description: "INCORRECT ADDRESS"},
}

// LookupException maps a source delay code to its customer-facing exception
// code. Unmapped codes return UnknownExceptionCode, never an error.
func LookupException(sourceCode string) ExceptionCode {
	if code, ok := exceptionMapping[sourceCode]; ok {
		return code
	}
	return UnknownExceptionCode
}
