package model

import "testing"

// TestSeverityString tests the String method of Severity.
func TestSeverityString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityInfo, "INFO"},
		{SeverityLow, "LOW"},
		{SeverityMedium, "MEDIUM"},
		{SeverityHigh, "HIGH"},
		{SeverityCritical, "CRITICAL"},
		{Severity(999), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.severity.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.severity.String(), tc.expected)
			}
		})
	}
}

// TestGetSeverity tests the GetSeverity function.
func TestGetSeverity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		findingType string
		expected    Severity
	}{
		{CheckCodeInjection, SeverityCritical},
		{CheckTyposquatting, SeverityHigh},
		{CheckSupplyChain, SeverityHigh},
		{FindingHighRiskPackage, SeverityHigh},
		{CheckCredentialHarvesting, SeverityMedium},
		{FindingCheckError, SeverityLow},
		{"unknown_type", SeverityInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.findingType, func(t *testing.T) {
			t.Parallel()
			if got := GetSeverity(tc.findingType); got != tc.expected {
				t.Errorf("got %v, expected %v", got, tc.expected)
			}
		})
	}
}

// TestGetFindingInfo verifies every mapped finding has impact and recommendation text.
func TestGetFindingInfo(t *testing.T) {
	t.Parallel()

	for findingType := range findingInfoMapping {
		t.Run(findingType, func(t *testing.T) {
			t.Parallel()
			info := GetFindingInfo(findingType)
			if info.Impact == "" {
				t.Error("expected impact to be set")
			}
			if info.Recommendation == "" {
				t.Error("expected recommendation to be set")
			}
		})
	}

	t.Run("unknown type returns default", func(t *testing.T) {
		t.Parallel()
		info := GetFindingInfo("does_not_exist")
		if info.Severity != SeverityInfo {
			t.Errorf("expected SeverityInfo, got %v", info.Severity)
		}
		if info.Impact == "" {
			t.Error("expected default impact text")
		}
	})
}
