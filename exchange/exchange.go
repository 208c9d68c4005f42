/*package exchange orchestrates a coupling step across ranks.

Each rank owns a slab of sources and receptors plus a spatial index over the
receptors. During a pass a rank runs two goroutines: a server that evaluates
incoming source payloads against the rank's receptors, and a driver that
walks the rank's own sources and collects partial results from every server,
its own included. Routing local sources through the same server as remote
ones keeps a single writer for every receptor and a single code path for
both cases, so a one-rank run and an n-rank run of the same particles are
bitwise interchangeable up to summation order.
*/
package exchange

import (
	"errors"
	"fmt"
	"sync"

	"github.com/phil-mansfield/gomech"
	"github.com/phil-mansfield/gomech/couple"
	"github.com/phil-mansfield/gomech/diag"
	"github.com/phil-mansfield/gomech/events"
	"github.com/phil-mansfield/gomech/tree"
)

// ErrProtocol reports that a server went away without answering a request.
// It is fatal for the step.
var ErrProtocol = errors.New("exchange: server closed without responding")

// Rank is one domain slab: the sources and receptors it owns and the index
// over those receptors. Receptors are mutated only by the rank's own server
// goroutine.
type Rank struct {
	ID        int
	Sources   []gomech.Source
	Receptors []gomech.Receptor
	Index     tree.Index

	maxHsml float64
}

// NewRank builds a rank over the given particles. The receptor index must
// enumerate exactly the receptors passed here.
func NewRank(
	id int, srcs []gomech.Source, recs []gomech.Receptor, index tree.Index,
) *Rank {
	r := &Rank{ID: id, Sources: srcs, Receptors: recs, Index: index}
	for i := range recs {
		if recs[i].Hsml > r.maxHsml {
			r.maxHsml = recs[i].Hsml
		}
	}
	return r
}

type request struct {
	in   *couple.Input
	resp chan response
}

type response struct {
	out couple.Output
	err error
}

// Engine drives the ordered pass sequence over a set of ranks.
type Engine struct {
	Ranks    []*Rank
	Eval     *couple.Evaluator
	Selector *events.Selector

	// Log, if set, is called with the finished record of every step.
	Log func(rec *diag.Record)
}

// Step runs one full feedback step at the given code-unit time: event
// selection, the two weighting passes, then one couple pass per enabled
// channel, and finally the diagnostic reduction.
func (eng *Engine) Step(time float64) (diag.Record, error) {
	acc := &diag.Accumulator{Time: time}
	for _, r := range eng.Ranks {
		pop := eng.Selector.Select(time, r.Sources)
		acc.AddPopulation(&pop)
		for i := range r.Sources {
			r.Sources[i].Wt.Zero()
		}
	}

	passes := []int{couple.PassWeightSum, couple.PassRenormalize,
		couple.ChannelSNe}
	if eng.Selector.Winds {
		passes = append(passes, couple.ChannelWinds)
	}

	for _, pass := range passes {
		mCoupled, pInjected, err := eng.runPass(pass)
		if err != nil {
			return diag.Record{}, err
		}
		acc.CoupledMass += mCoupled
		acc.InjectedMomentum += pInjected
	}

	rec := acc.Record()
	if eng.Log != nil {
		eng.Log(&rec)
	}
	return rec, nil
}

// runPass runs one pass to completion on every rank. All servers stay up
// until every driver has finished, since any driver may still need any
// server.
func (eng *Engine) runPass(pass int) (mCoupled, pInjected float64, err error) {
	reqs := make([]chan request, len(eng.Ranks))
	var servers sync.WaitGroup
	for i, r := range eng.Ranks {
		reqs[i] = make(chan request, 8)
		servers.Add(1)
		go func(r *Rank, ch chan request) {
			defer servers.Done()
			eng.serve(pass, r, ch)
		}(r, reqs[i])
	}

	type partial struct {
		mCoupled, pInjected float64
		err                 error
	}
	parts := make(chan partial, len(eng.Ranks))
	var drivers sync.WaitGroup
	for _, r := range eng.Ranks {
		drivers.Add(1)
		go func(r *Rank) {
			defer drivers.Done()
			m, p, err := eng.drive(pass, r, reqs)
			parts <- partial{m, p, err}
		}(r)
	}

	drivers.Wait()
	for i := range reqs {
		close(reqs[i])
	}
	servers.Wait()
	close(parts)

	for part := range parts {
		if part.err != nil && err == nil {
			err = part.err
		}
		mCoupled += part.mCoupled
		pInjected += part.pInjected
	}
	if err != nil {
		return 0, 0, err
	}
	return mCoupled, pInjected, nil
}

// serve answers requests against the rank's receptors until the channel
// closes. An index failure poisons the response but not the server: later
// requests in the same pass still get answers, and the drivers decide to
// abort.
func (eng *Engine) serve(pass int, r *Rank, ch chan request) {
	for req := range ch {
		out, err := eng.evalLocal(pass, r, req.in)
		req.resp <- response{out, err}
	}
}

// drive walks the rank's own sources, fans each payload out to every server,
// merges the partial outputs and applies the merged result. The first error
// aborts the walk; outstanding responses land in their buffered channels and
// are dropped with the pass.
func (eng *Engine) drive(
	pass int, r *Rank, reqs []chan request,
) (mCoupled, pInjected float64, err error) {
	resps := make([]chan response, len(reqs))
	for i := range r.Sources {
		s := &r.Sources[i]
		if !couple.Active(s, pass) {
			continue
		}
		in := couple.NewInput(s, pass)

		for j := range reqs {
			resps[j] = make(chan response, 1)
			reqs[j] <- request{in: &in, resp: resps[j]}
		}

		var total couple.Output
		for j := range resps {
			rsp, ok := <-resps[j]
			if !ok {
				return 0, 0, fmt.Errorf(
					"source %d pass %d: %w", s.ID, pass, ErrProtocol)
			}
			if rsp.err != nil {
				return 0, 0, fmt.Errorf(
					"source %d pass %d: %w", s.ID, pass, rsp.err)
			}
			total.Merge(&rsp.out)
		}

		couple.ApplyToSource(pass, s, &total)
		mCoupled += total.MCoupled
		pInjected += total.InjectedMomentum
	}
	return mCoupled, pInjected, nil
}

// evalLocal evaluates one payload against every local receptor candidate
// within reach. The traversal is resumable and a candidate is evaluated at
// most once per payload, whatever batching the index chooses.
func (eng *Engine) evalLocal(
	pass int, r *Rank, in *couple.Input,
) (couple.Output, error) {
	var out couple.Output
	if r.Index == nil || len(r.Receptors) == 0 {
		return out, nil
	}

	radius := in.Hsml
	if r.maxHsml > radius {
		radius = r.maxHsml
	}

	seen := make(map[int]bool)
	idxs := []int{}
	var cur tree.Cursor
	for {
		cands, next, done, err := r.Index.Query(&in.Pos, radius, cur)
		if err != nil {
			return out, err
		}
		idxs = idxs[:0]
		for _, c := range cands {
			if !seen[c.Index] {
				seen[c.Index] = true
				idxs = append(idxs, c.Index)
			}
		}
		eng.Eval.Evaluate(pass, in, r.Receptors, idxs, &out)
		if done {
			return out, nil
		}
		cur = next
	}
}
