package particle

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestChargeRules(t *testing.T) {
	for _, tc := range []struct {
		a, b     Charge
		attracts bool
		repels   bool
	}{
		{Neutral, Neutral, true, false},
		{Neutral, Positive, true, false},
		{Neutral, Negative, true, false},
		{Positive, Neutral, true, false},
		{Negative, Neutral, true, false},
		{Positive, Negative, true, false},
		{Negative, Positive, true, false},
		{Positive, Positive, false, true},
		{Negative, Negative, false, true},
	} {
		t.Run(tc.a.String()+"/"+tc.b.String(), func(t *testing.T) {
			test.That(t, tc.a.Attracts(tc.b), test.ShouldEqual, tc.attracts)
			test.That(t, tc.a.Repels(tc.b), test.ShouldEqual, tc.repels)
		})
	}
	test.That(t, Charge(3).String(), test.ShouldEqual, "charge(3)")
}

func TestParticle(t *testing.T) {
	p := New(r3.Vector{X: 1, Y: 2, Z: 3}, 5, Positive)
	test.That(t, p.ID(), test.ShouldEqual, ID(0))
	test.That(t, p.Position(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	p.Pos = p.Pos.Add(r3.Vector{X: 1})
	test.That(t, p.Position().X, test.ShouldEqual, 2.0)
	test.That(t, p.String(), test.ShouldContainSubstring, "positive")

	var point Point = p
	test.That(t, point.Position(), test.ShouldResemble, p.Pos)
}
