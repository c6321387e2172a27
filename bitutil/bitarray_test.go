package bitutil

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestBitArraySetAcrossWords(t *testing.T) {
	a := NewBitArray(70)
	for _, i := range []int{0, 31, 32, 69} {
		a.Set(i)
	}
	for i := 0; i < a.Len(); i++ {
		want := i == 0 || i == 31 || i == 32 || i == 69
		if a.Get(i) != want {
			t.Errorf("bit %d = %v, want %v", i, a.Get(i), want)
		}
	}
	a.Flip(31)
	if a.Get(31) {
		t.Error("bit 31 still set after Flip")
	}
	a.Clear()
	if got := a.NextSet(0); got != a.Len() {
		t.Errorf("NextSet after Clear = %d, want %d", got, a.Len())
	}
}

func TestBitArrayNextSetAndUnset(t *testing.T) {
	a := NewBitArray(100)
	a.SetRange(10, 75)
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"first set", a.NextSet(0), 10},
		{"set inside run", a.NextSet(40), 40},
		{"none after run", a.NextSet(75), 100},
		{"first unset", a.NextUnset(0), 0},
		{"unset after run", a.NextUnset(10), 75},
		{"from past end", a.NextUnset(200), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestBitArrayIsRange(t *testing.T) {
	a := NewBitArray(64)
	a.SetRange(4, 40)
	if !a.IsRange(4, 40, true) {
		t.Error("[4,40) should be all set")
	}
	if !a.IsRange(0, 4, false) || !a.IsRange(40, 64, false) {
		t.Error("outside the run should be all unset")
	}
	if a.IsRange(0, 8, true) || a.IsRange(30, 50, false) {
		t.Error("mixed ranges must not report uniform")
	}
	if !a.IsRange(9, 9, true) {
		t.Error("empty range is trivially uniform")
	}
}

func TestBitArrayReverse(t *testing.T) {
	a := NewBitArray(37)
	a.Set(0)
	a.Set(2)
	a.Set(33)
	a.Reverse()
	for i := 0; i < a.Len(); i++ {
		want := i == 36 || i == 34 || i == 3
		if a.Get(i) != want {
			t.Errorf("bit %d = %v, want %v", i, a.Get(i), want)
		}
	}
}

func TestBitArrayCloneIsIndependent(t *testing.T) {
	a := NewBitArray(16)
	a.Set(5)
	c := a.Clone()
	c.Set(10)
	if a.Get(10) {
		t.Error("writing the clone changed the original")
	}
	if !c.Get(5) {
		t.Error("clone lost bit 5")
	}
}

func TestBitArrayString(t *testing.T) {
	a := NewBitArray(10)
	a.Set(1)
	a.Set(8)
	if got, want := a.String(), " .X...... X."; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestBitArrayReverseProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("reversing twice is the identity", prop.ForAll(
		func(set []int, n int) bool {
			a := NewBitArray(n)
			for _, i := range set {
				a.Set(i % n)
			}
			b := a.Clone()
			b.Reverse()
			b.Reverse()
			for i := 0; i < n; i++ {
				if a.Get(i) != b.Get(i) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(1, 200),
	))

	properties.Property("reverse mirrors every bit", prop.ForAll(
		func(set []int, n int) bool {
			a := NewBitArray(n)
			for _, i := range set {
				a.Set(i % n)
			}
			b := a.Clone()
			b.Reverse()
			for i := 0; i < n; i++ {
				if a.Get(i) != b.Get(n-1-i) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}
