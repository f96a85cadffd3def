package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/gravityexperiment/gravsim/particle"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).RunContext(context.Background(), append([]string{"gravsim"}, args...))
	return out.String(), err
}

func readSnapshot(t *testing.T, path string) []*particle.Particle {
	t.Helper()
	f, err := os.Open(path)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	particles, err := particle.ReadPCD(f, 1)
	test.That(t, err, test.ShouldBeNil)
	return particles
}

func TestRun(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "out.pcd")
	out, err := runApp(t, "run",
		"--particles", "40",
		"--ticks", "3",
		"--seed", "5",
		"--backend", "tree",
		"--metrics-addr", "localhost:0",
		"--snapshot", snapshot,
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "ran 3 steps over 40 particles")
	test.That(t, out, test.ShouldContainSubstring, "DEPTH")
	test.That(t, len(readSnapshot(t, snapshot)), test.ShouldEqual, 40)
}

func TestRunLoad(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.pcd")
	f, err := os.Create(input)
	test.That(t, err, test.ShouldBeNil)
	var particles []*particle.Particle
	for i := 0; i < 5; i++ {
		particles = append(particles, particle.New(r3.Vector{X: float64(i), Z: -float64(i)}, 2, particle.Positive))
	}
	test.That(t, particle.WritePCD(particles, f, particle.PCDAscii), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	snapshot := filepath.Join(dir, "out.pcd")
	out, err := runApp(t, "run", "--load", input, "--ticks", "2", "--snapshot", snapshot, "--snapshot-binary")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "ran 2 steps over 5 particles")

	loaded := readSnapshot(t, snapshot)
	test.That(t, len(loaded), test.ShouldEqual, 5)
	for _, p := range loaded {
		test.That(t, p.Charge, test.ShouldEqual, particle.Positive)
		test.That(t, p.Mass, test.ShouldEqual, 2.0)
	}

	_, err = runApp(t, "run", "--load", filepath.Join(dir, "missing.pcd"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.json")
	t.Setenv("GRAVSIM_TICKS", "4")
	contents := `{"spawn": {"group_particles": 12}, "simulation": {"ticks": ${GRAVSIM_TICKS}}}`
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)

	out, err := runApp(t, "--quiet", "run", "--config", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "ran 4 steps over 12 particles")

	out, err = runApp(t, "run", "--config", path, "--ticks", "1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "ran 1 steps over 12 particles")
}

func TestRunInvalid(t *testing.T) {
	_, err := runApp(t, "run", "--backend", "gpu")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "gpu")

	_, err = runApp(t, "run", "--ticks", "-1")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = runApp(t, "run", "--config", filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
