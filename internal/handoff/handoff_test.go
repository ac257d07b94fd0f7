package handoff

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/fingerprint"
	"git.home.luguber.info/inful/buildplan/internal/plan"
	"git.home.luguber.info/inful/buildplan/internal/targets"
)

// fakeStream mimics JetStream de-duplication by message id.
type fakeStream struct {
	msgs []*nats.Msg
	seen map[string]uint64
	opts int
	err  error
}

func (f *fakeStream) PublishMsg(_ context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.opts = len(opts)
	if f.seen == nil {
		f.seen = map[string]uint64{}
	}
	id := msg.Header.Get(HeaderHash)
	if seq, ok := f.seen[id]; ok {
		return &jetstream.PubAck{Stream: "PLANS", Sequence: seq, Duplicate: true}, nil
	}
	f.msgs = append(f.msgs, msg)
	seq := uint64(len(f.msgs))
	f.seen[id] = seq
	return &jetstream.PubAck{Stream: "PLANS", Sequence: seq}, nil
}

func samplePlan(ids ...string) *plan.BuildPlan {
	bound := make([]targets.Bound, 0, len(ids))
	for _, id := range ids {
		bound = append(bound, targets.Bound{Descriptor: targets.Descriptor{ID: id}, ToolchainRef: targets.ToolchainPackage(id)})
	}
	return plan.Assemble(plan.Inputs{
		Targets:     bound,
		Fingerprint: fingerprint.Fingerprint("sha256-47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU="),
	})
}

func TestPublish(t *testing.T) {
	fs := &fakeStream{}
	c := New(fs, Options{Subject: "plans.demo"})
	p := samplePlan("A", "B")

	r, err := c.Publish(context.Background(), "/ws/buildplan.yaml", p)
	require.NoError(t, err)
	require.False(t, r.Duplicate)
	require.Equal(t, uint64(1), r.Sequence)
	require.Equal(t, 1, fs.opts)

	hash, err := p.Hash()
	require.NoError(t, err)
	require.Equal(t, hash, r.Hash)

	require.Len(t, fs.msgs, 1)
	msg := fs.msgs[0]
	require.Equal(t, "plans.demo", msg.Subject)
	require.Equal(t, "/ws/buildplan.yaml", msg.Header.Get(HeaderDeclaration))
	require.Equal(t, p.Source.Fingerprint.String(), msg.Header.Get(HeaderFingerprint))

	decoded, err := plan.Decode(msg.Data)
	require.NoError(t, err)
	require.Equal(t, p.Targets(), decoded.Targets())
}

func TestPublishUnchangedPlanIsDuplicate(t *testing.T) {
	fs := &fakeStream{}
	c := New(fs, Options{})

	_, err := c.Publish(context.Background(), "", samplePlan("A"))
	require.NoError(t, err)
	r, err := c.Publish(context.Background(), "", samplePlan("A"))
	require.NoError(t, err)
	require.True(t, r.Duplicate)
	require.Len(t, fs.msgs, 1)
	require.Equal(t, DefaultSubject, fs.msgs[0].Subject)
	require.Empty(t, fs.msgs[0].Header.Get(HeaderDeclaration))
}

func TestPublishFailure(t *testing.T) {
	c := New(&fakeStream{err: errors.New("no responders")}, Options{})
	_, err := c.Publish(context.Background(), "", samplePlan("A"))
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryHandoff))
}
