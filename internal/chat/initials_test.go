package chat

import "testing"

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Jane Doe", "JD"},
		{"jane doe", "JD"},
		{"X", "X"},
		{"", ""},
		{"   ", ""},
		{"Mary Jane Watson", "MJW"},
		{"  padded   name  ", "PN"},
		{"émile zola", "ÉZ"},
	}

	for _, tt := range tests {
		if got := Initials(tt.name); got != tt.want {
			t.Errorf("Initials(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
