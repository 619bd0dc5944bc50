package models

import "sort"

// OtherMissingPaymentLabel is the label for payment codes outside the fixed table,
// including trips with no recorded payment type.
const OtherMissingPaymentLabel = "Other/Missing"

var paymentCodeToLabel = map[int64]string{
	1: "Credit Card",
	2: "Cash",
	3: "No Charge",
	4: "Dispute",
	5: "Unknown",
	6: "Voided Trip",
}

var paymentLabelToCode = map[string]int64{
	"Credit Card": 1,
	"Cash":        2,
	"No Charge":   3,
	"Dispute":     4,
	"Unknown":     5,
	"Voided Trip": 6,
}

// PaymentLabel maps a payment_type code to its display label.
func PaymentLabel(code *int64) string {
	if code == nil {
		return OtherMissingPaymentLabel
	}
	if label, ok := paymentCodeToLabel[*code]; ok {
		return label
	}
	return OtherMissingPaymentLabel
}

// PaymentCode maps a display label back to its payment_type code.
func PaymentCode(label string) (int64, bool) {
	code, ok := paymentLabelToCode[label]
	return code, ok
}

// PaymentLabels returns the selectable payment labels in alphabetical order.
func PaymentLabels() []string {
	labels := make([]string, 0, len(paymentLabelToCode))
	for label := range paymentLabelToCode {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// PaymentCodes translates labels into sorted, de-duplicated codes. Labels
// that are not in the table are dropped.
func PaymentCodes(labels []string) []int64 {
	seen := make(map[int64]bool, len(labels))
	codes := make([]int64, 0, len(labels))
	for _, label := range labels {
		code, ok := paymentLabelToCode[label]
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
