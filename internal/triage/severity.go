package triage

// ResolveSeverity maps a classification to its clinical urgency tier.
// Precedence: no tumor is GREEN; glioma and meningioma are RED; pituitary is
// YELLOW; any other combination (including the representable-but-inconsistent
// "tumor present, type NoTumor") falls through to GREEN.
func ResolveSeverity(c *Classification) Severity {
	switch {
	case !c.TumorPresent:
		return SeverityGreen
	case c.TumorType == TumorGlioma || c.TumorType == TumorMeningioma:
		return SeverityRed
	case c.TumorType == TumorPituitary:
		return SeverityYellow
	default:
		return SeverityGreen
	}
}
