package service

import "testing"

func TestNextBox(t *testing.T) {
	cases := []struct {
		name    string
		box     int
		correct bool
		want    int
	}{
		{"correct promotes", 1, true, 2},
		{"correct from middle", 3, true, 4},
		{"top box stays", 5, true, 5},
		{"wrong resets", 4, false, 1},
		{"wrong at bottom", 1, false, 1},
		{"bad stored box normalized", 0, true, 2},
		{"overflow clamped", 9, true, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextBox(tc.box, tc.correct); got != tc.want {
				t.Fatalf("nextBox(%d, %v) = %d, want %d", tc.box, tc.correct, got, tc.want)
			}
		})
	}
}
