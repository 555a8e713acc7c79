package machine

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/joshuapare/exokit/libos/exo"
	"github.com/joshuapare/exokit/libos/slab"
	"github.com/joshuapare/exokit/mem"
)

// ErrScenario is returned when the page allocation scenario observes
// unexpected addresses.
var ErrScenario = errors.New("machine: scenario failed")

// ScenarioResult records the addresses seen by RunScenario.
type ScenarioResult struct {
	First  uint32 `json:"first"`
	Second uint32 `json:"second"`
	Again  uint32 `json:"again"`
}

// RunScenario checks first-fit reuse through the system call interface:
// allocate one page (A) and two pages (B) and expect B directly after A,
// free both, then allocate one page and expect A again.
func (m *Machine) RunScenario() (ScenarioResult, error) {
	sys := exo.NewClient(m.kernel)
	var res ScenarioResult

	a, err := sys.AllocPg(1)
	if err != nil {
		return res, fmt.Errorf("allocpg(1): %w", err)
	}
	res.First = a.Addr

	b, err := sys.AllocPg(2)
	if err != nil {
		return res, fmt.Errorf("allocpg(2): %w", err)
	}
	res.Second = b.Addr

	if b.Addr-a.Addr != mem.PageSize {
		return res, fmt.Errorf("%w: second run at %#x, want %#x", ErrScenario, b.Addr, a.Addr+mem.PageSize)
	}

	for _, u := range []exo.AllocUnit{a, b} {
		if err := sys.FreePg(u); err != nil {
			return res, fmt.Errorf("freepg(%s): %w", u, err)
		}
	}

	again, err := sys.AllocPg(1)
	if err != nil {
		return res, fmt.Errorf("allocpg(1): %w", err)
	}
	res.Again = again.Addr
	if err := sys.FreePg(again); err != nil {
		return res, fmt.Errorf("freepg(%s): %w", again, err)
	}

	if again.Addr != a.Addr {
		return res, fmt.Errorf("%w: reallocated %#x, want %#x", ErrScenario, again.Addr, a.Addr)
	}
	return res, nil
}

// WorkloadReport summarizes Exercise.
type WorkloadReport struct {
	Seed       int64  `json:"seed"`
	Steps      int    `json:"steps"`
	Mallocs    int    `json:"mallocs"`
	Frees      int    `json:"frees"`
	Failures   int    `json:"failures"`
	PageAllocs int    `json:"page_allocs"`
	PageFrees  int    `json:"page_frees"`
	Live       int    `json:"live"`
	LiveBytes  uint64 `json:"live_bytes"`
}

type liveObject struct {
	addr uint32
	size uint32
}

// Exercise drives a random mix of object and page traffic through the
// library OS and the system call interface, checking both allocators'
// bookkeeping after every step. Everything allocated is released before it
// returns.
func (m *Machine) Exercise(seed int64, steps int) (WorkloadReport, error) {
	if m.os == nil {
		return WorkloadReport{}, fmt.Errorf("machine: no library OS")
	}

	rng := rand.New(rand.NewSource(seed))
	sys := exo.NewClient(m.kernel)
	rep := WorkloadReport{Seed: seed, Steps: steps}

	var objs []liveObject
	var runs []exo.AllocUnit

	for step := range steps {
		switch op := rng.Intn(10); {
		case op < 5:
			size := uint32(1 + rng.Intn(slab.MaxObjectSize))
			addr, err := m.os.Malloc(size)
			if err != nil {
				rep.Failures++
				break
			}
			rep.Mallocs++
			objs = append(objs, liveObject{addr, size})
		case op < 8 && len(objs) > 0:
			i := rng.Intn(len(objs))
			o := objs[i]
			objs[i] = objs[len(objs)-1]
			objs = objs[:len(objs)-1]
			if err := m.os.Free(o.addr, o.size); err != nil {
				return rep, fmt.Errorf("step %d: free %#x: %w", step, o.addr, err)
			}
			rep.Frees++
		case op == 8:
			unit, err := sys.AllocPg(uint32(1 + rng.Intn(16)))
			if err != nil {
				rep.Failures++
				break
			}
			rep.PageAllocs++
			runs = append(runs, unit)
		case len(runs) > 0:
			i := rng.Intn(len(runs))
			u := runs[i]
			runs[i] = runs[len(runs)-1]
			runs = runs[:len(runs)-1]
			if err := sys.FreePg(u); err != nil {
				return rep, fmt.Errorf("step %d: freepg %s: %w", step, u, err)
			}
			rep.PageFrees++
		}

		if err := m.checkInvariants(); err != nil {
			return rep, fmt.Errorf("step %d: %w", step, err)
		}
	}

	rep.Live = len(objs)
	for _, o := range objs {
		rep.LiveBytes += uint64(o.size)
	}

	for _, o := range objs {
		if err := m.os.Free(o.addr, o.size); err != nil {
			return rep, fmt.Errorf("drain: free %#x: %w", o.addr, err)
		}
	}
	for _, u := range runs {
		if err := sys.FreePg(u); err != nil {
			return rep, fmt.Errorf("drain: freepg %s: %w", u, err)
		}
	}
	return rep, m.checkInvariants()
}

func (m *Machine) checkInvariants() error {
	if err := m.kernel.Pages().CheckInvariants(); err != nil {
		return err
	}
	if m.os != nil {
		return m.os.Slab().CheckInvariants()
	}
	return nil
}
