package classify

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		complex bool
	}{
		{"hi there", false},
		{"hello!", false},
		{"thanks so much", false},
		{"okay great", false},
		{"what do you mean by layover?", true}, // mentions a travel concept the model may need data for
		{"find me flights to Tokyo under $900 departing June 2", true},
		{"I need a hotel in Paris next weekend", true},
		{"compare the cheapest options please", true},
		{"plan an itinerary for Rome", true},
		{"to Lisbon on March 3 with about $1200", true},
		{"what's your favorite color?", false},
		{"tell me a joke", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := Classify(tt.message)
			if got.Complex != tt.complex {
				t.Errorf("Classify(%q).Complex = %v, want %v (reason: %s)",
					tt.message, got.Complex, tt.complex, got.Reason)
			}
		})
	}
}

func TestClassify_TiesFavorSimple(t *testing.T) {
	// One weak signal alone (a capitalized destination) is not enough.
	got := Classify("I went to Barcelona once")
	if got.Complex {
		t.Errorf("single weak signal classified complex: %s", got.Reason)
	}
}
