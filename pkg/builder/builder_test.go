package builder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catdeal3r/xuehua/pkg/engineerr"
	"github.com/catdeal3r/xuehua/pkg/executor"
	"github.com/catdeal3r/xuehua/pkg/plan"
	"github.com/catdeal3r/xuehua/pkg/policy"
	"github.com/catdeal3r/xuehua/pkg/store"
	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// fakeStore embeds a nil store.Store and overrides only the method
// runBuild actually calls, so the other interface methods never need a
// real implementation for these tests to stay nil-safe.
type fakeStore struct {
	store.Store
}

func (fakeStore) RegisterArtifact(ctx context.Context, path string) (store.ArtifactId, error) {
	return store.ArtifactId{}, fmt.Errorf("fake store: artifact registration not supported in test")
}

// stubThunk records whether runBuild invoked it, so each test can check
// whether the policy hook let the build reach the thunk.
type stubThunk struct{ invoked bool }

func (s *stubThunk) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	s.invoked = true
	return nil, nil
}

type fakeChecker struct {
	result *policy.PolicyResult
	err    error
	calls  int
}

func (f *fakeChecker) Evaluate(ctx context.Context, pkg *xpkg.Package) (*policy.PolicyResult, error) {
	f.calls++
	return f.result, f.err
}

func newTestNode(t *testing.T, thunk *stubThunk) *plan.Node {
	t.Helper()
	p := plan.New()
	n, err := p.AddPackage(&xpkg.Package{
		Id:    xpkg.NewId("web-server", nil),
		Build: thunk,
	})
	require.NoError(t, err)
	return n
}

func TestRunBuildSkipsPolicyWhenUnset(t *testing.T) {
	thunk := &stubThunk{}
	n := newTestNode(t, thunk)
	b := &Builder{
		BuildRoot: t.TempDir(),
		Executors: executor.NewManager(),
		Store:     fakeStore{},
	}

	_, err := b.runBuild(context.Background(), n, nil)
	// The fake store rejects artifact registration, so the build still
	// fails overall, but the failure must come from that, not a policy
	// rejection, and the thunk must have run.
	require.Error(t, err)
	assert.False(t, engineerrKind(err, engineerr.KindPolicyDenied))
	assert.True(t, thunk.invoked)
}

func TestRunBuildDeniesOnPolicyRejection(t *testing.T) {
	thunk := &stubThunk{}
	n := newTestNode(t, thunk)
	checker := &fakeChecker{
		result: &policy.PolicyResult{
			Allowed: false,
			Violations: []policy.PolicyViolation{
				{Policy: "package-naming", Message: "bad name", Severity: policy.SeverityError},
			},
			EvaluatedAt: time.Now(),
		},
	}
	b := &Builder{Policy: checker}

	_, err := b.runBuild(context.Background(), n, nil)
	require.Error(t, err)
	assert.True(t, engineerrKind(err, engineerr.KindPolicyDenied))
	assert.Equal(t, 1, checker.calls)
	assert.False(t, thunk.invoked, "build thunk must not run once policy denies the package")
}

func TestRunBuildProceedsOnPolicyAllow(t *testing.T) {
	thunk := &stubThunk{}
	n := newTestNode(t, thunk)
	checker := &fakeChecker{
		result: &policy.PolicyResult{Allowed: true, EvaluatedAt: time.Now()},
	}
	b := &Builder{
		Policy:    checker,
		BuildRoot: t.TempDir(),
		Executors: executor.NewManager(),
		Store:     fakeStore{},
	}

	_, err := b.runBuild(context.Background(), n, nil)
	// Still errors out at artifact registration, but the thunk must
	// have run, proving the policy check let the build through.
	require.Error(t, err)
	assert.False(t, engineerrKind(err, engineerr.KindPolicyDenied))
	assert.Equal(t, 1, checker.calls)
	assert.True(t, thunk.invoked)
}

func engineerrKind(err error, kind engineerr.Kind) bool {
	e, ok := err.(*engineerr.Error)
	return ok && e.Kind == kind
}
