package particle

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestSet(t *testing.T) {
	set := NewSet(golog.NewTestLogger(t))
	test.That(t, set.Len(), test.ShouldEqual, 0)
	test.That(t, set.Dirty(), test.ShouldBeFalse)

	var notified int
	set.OnChange(func() { notified++ })

	a := set.Add(New(r3.Vector{X: 1}, 1, Neutral))
	b := set.Add(New(r3.Vector{X: 2}, 1, Positive))
	c := set.Add(New(r3.Vector{X: 3}, 1, Negative))
	test.That(t, []ID{a, b, c}, test.ShouldResemble, []ID{0, 1, 2})
	test.That(t, set.Len(), test.ShouldEqual, 3)
	test.That(t, set.Dirty(), test.ShouldBeTrue)

	// a batch of changes produces a single notification
	test.That(t, set.Flush(), test.ShouldBeTrue)
	test.That(t, set.Flush(), test.ShouldBeFalse)
	test.That(t, notified, test.ShouldEqual, 1)

	p, ok := set.Get(b)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.Pos.X, test.ShouldEqual, 2.0)

	t.Run("remove keeps order and lookups", func(t *testing.T) {
		test.That(t, set.Remove(a), test.ShouldBeTrue)
		test.That(t, set.Remove(a), test.ShouldBeFalse)
		_, ok := set.Get(a)
		test.That(t, ok, test.ShouldBeFalse)
		p, ok := set.Get(c)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, p.ID(), test.ShouldEqual, c)

		points := set.Points()
		test.That(t, points, test.ShouldHaveLength, 2)
		test.That(t, points[0].ID(), test.ShouldEqual, b)
		test.That(t, points[1].ID(), test.ShouldEqual, c)
		test.That(t, set.Flush(), test.ShouldBeTrue)
		test.That(t, notified, test.ShouldEqual, 2)
	})

	t.Run("ids are never reused", func(t *testing.T) {
		d := set.Add(New(r3.Vector{}, 1, Neutral))
		test.That(t, d, test.ShouldEqual, ID(3))
	})

	t.Run("particles returns a copy of the slice", func(t *testing.T) {
		particles := set.Particles()
		particles[0] = nil
		test.That(t, set.Particles()[0], test.ShouldNotBeNil)
	})

	t.Run("clear", func(t *testing.T) {
		set.Flush()
		set.Clear()
		test.That(t, set.Len(), test.ShouldEqual, 0)
		test.That(t, set.Dirty(), test.ShouldBeTrue)
		set.Flush()
		set.Clear()
		test.That(t, set.Dirty(), test.ShouldBeFalse)
	})
}
