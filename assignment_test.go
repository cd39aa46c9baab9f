package magnetar

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validAssignment() *Assignment {
	start := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	return &Assignment{
		Key:                  "homework12",
		Name:                 "Homework 12",
		StartTime:            start,
		EndTime:              start.Add(2 * time.Hour),
		ScoreboardVisibility: ScoreboardVisible,
		FormatName:           "points",
		PointsPrecision:      DefaultPointsPrecision,
	}
}

func TestAssignmentValidate(t *testing.T) {
	tests := map[string]struct {
		mutate    func(a *Assignment)
		wantErr   bool
		windowErr bool
	}{
		"valid":             {mutate: func(a *Assignment) {}},
		"key with dashes":   {mutate: func(a *Assignment) { a.Key = "home-work" }, wantErr: true},
		"key with capitals": {mutate: func(a *Assignment) { a.Key = "Homework" }, wantErr: true},
		"empty key":         {mutate: func(a *Assignment) { a.Key = "" }, wantErr: true},
		"end before start": {
			mutate:    func(a *Assignment) { a.EndTime = a.StartTime.Add(-time.Minute) },
			wantErr:   true,
			windowErr: true,
		},
		"end equals start": {
			mutate:    func(a *Assignment) { a.EndTime = a.StartTime },
			wantErr:   true,
			windowErr: true,
		},
		"negative time limit": {
			mutate:    func(a *Assignment) { a.TimeLimit = duration(-time.Hour) },
			wantErr:   true,
			windowErr: true,
		},
		"floor above ceiling": {
			mutate: func(a *Assignment) {
				floor, ceil := 2000, 1500
				a.RatingFloor, a.RatingCeiling = &floor, &ceil
			},
			wantErr: true,
		},
		"precision too large": {
			mutate:  func(a *Assignment) { a.PointsPrecision = 12 },
			wantErr: true,
		},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			a := validAssignment()
			test.mutate(a)
			err := a.Validate()
			if !test.wantErr {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if test.windowErr && !errors.Is(err, ErrInvalidWindow) {
				t.Fatalf("Validate() = %v, want ErrInvalidWindow", err)
			}
			if ErrorCode(err) != 400 {
				t.Fatalf("ErrorCode() = %d, want 400", ErrorCode(err))
			}
		})
	}
}

func TestSuggestKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Homework 12", "homework12"},
		{"Winter Round #3!", "winterround3"},
		{"Über-Aufgabe", "uberaufgabe"},
	}
	for _, test := range tests {
		got := SuggestKey(test.name)
		if got != test.want {
			t.Errorf("SuggestKey(%q) = %q, want %q", test.name, got, test.want)
		}
		if !keyRegexp.MatchString(got) {
			t.Errorf("SuggestKey(%q) = %q, not a valid key", test.name, got)
		}
	}
}

func TestRandomAccessCode(t *testing.T) {
	for _, size := range []int{4, 6, 8, 16} {
		code := RandomAccessCode(size)
		if len(code) != size {
			t.Fatalf("wanted code of size %d, got %d", size, len(code))
		}
		for _, chr := range code {
			if !strings.ContainsRune(codeCharacters, chr) {
				t.Fatal("code contains characters outside the alphabet")
			}
		}
	}
}
