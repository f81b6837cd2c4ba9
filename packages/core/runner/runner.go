package runner

import (
	"time"

	"github.com/abdul-hamid-achik/restflow/packages/core/context"
	"github.com/abdul-hamid-achik/restflow/packages/core/fault"
	"github.com/abdul-hamid-achik/restflow/packages/core/model"
	"github.com/abdul-hamid-achik/restflow/packages/core/template"
	"github.com/abdul-hamid-achik/restflow/packages/extract"
	"github.com/abdul-hamid-achik/restflow/packages/http"
	"github.com/abdul-hamid-achik/restflow/packages/validate"
	"github.com/mohae/deepcopy"
)

// Level names the scope a binding configuration is applied at.
type Level string

const (
	LevelTestSet  Level = "testset"
	LevelTestCase Level = "testcase"
)

// Runner executes testsets sequentially against one Context. The Context
// is injected and never reset between testsets: variables bound or
// extracted by an earlier testset stay visible to later ones. Callers
// wanting isolation between concurrent units build one Runner (and one
// Context) per unit.
type Runner struct {
	client       *http.Client
	ctx          *context.Context
	suiteRequest map[string]any
	config       *Config
}

type Config struct {
	Timeout        time.Duration
	FollowRedirect bool
	ValidateSSL    bool
	Proxy          string
	Bail           bool
}

// Option adjusts a Runner at construction time.
type Option func(*Runner)

// WithClient injects a shared HTTP client instead of building one from
// the config. Callers constructing many short-lived Runners use this to
// keep one connection pool.
func WithClient(client *http.Client) Option {
	return func(r *Runner) {
		r.client = client
	}
}

// NewHTTPClient builds the HTTP client a Runner would use for cfg.
func NewHTTPClient(cfg *Config) *http.Client {
	clientOpts := []http.ClientOption{
		http.WithFollowRedirects(cfg.FollowRedirect),
		http.WithValidateSSL(cfg.ValidateSSL),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}
	return http.NewClient(clientOpts...)
}

func NewRunner(ctx *context.Context, cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{FollowRedirect: true, ValidateSSL: true}
	}
	if ctx == nil {
		ctx = context.New()
	}

	r := &Runner{
		ctx:    ctx,
		config: cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = NewHTTPClient(cfg)
	}
	return r
}

// Context returns the injected Context, mainly so callers can register
// their own functions or seed variables before a run.
func (r *Runner) Context() *context.Context {
	return r.ctx
}

// Result is the outcome of one testcase.
type Result struct {
	Name      string
	Success   bool
	Diffs     []validate.Diff
	Extracted map[string]any
	Response  *http.Response
	Duration  time.Duration
	Err       error
}

// ApplyConfig applies one scope's binding configuration to the Context.
// At testset level it additionally snapshots the config's request as the
// suite-level defaults inherited by every testcase in the set.
func (r *Runner) ApplyConfig(cfg model.Config, level Level) error {
	if err := r.ctx.Apply(cfg); err != nil {
		return err
	}
	if level == LevelTestSet {
		r.suiteRequest = cfg.Request
	}
	return nil
}

// RunTest executes a single testcase: apply its binding config, merge
// its request over a deep copy of the suite defaults, resolve templates,
// dispatch, extract, validate. Any error aborts this testcase and is
// returned to the caller; nothing is swallowed.
func (r *Runner) RunTest(tc model.TestCase) (*Result, error) {
	result := &Result{Name: tc.Name}

	if err := r.ApplyConfig(tc.BindingConfig(), LevelTestCase); err != nil {
		return nil, err
	}

	merged := r.mergedRequest(tc.Request)

	resolved, err := template.Resolve(merged, r.ctx.Variables())
	if err != nil {
		return nil, err
	}
	resolvedReq := resolved.(map[string]any)

	// required fields are checked only after resolution: a request
	// assembled entirely from inherited and overridden keys must fail
	// here, not earlier
	if !hasStringKey(resolvedReq, "url") || !hasStringKey(resolvedReq, "method") {
		return nil, fault.New(fault.Params, "URL or METHOD missed")
	}

	httpReq, err := http.BuildRequest(resolvedReq)
	if err != nil {
		return nil, fault.Wrap(fault.Params, err, "building request")
	}

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	result.Duration = time.Since(start)
	if err != nil {
		// transport errors pass through unchanged
		return nil, err
	}
	result.Response = resp

	extracted, err := extract.ExtractAll(resp, tc.ExtractBinds)
	if err != nil {
		return nil, err
	}
	result.Extracted = extracted
	r.ctx.UpdateVariables(extracted)

	success, diffs, err := validate.Validate(resp, tc.Validators, r.ctx.Variables())
	if err != nil {
		return nil, err
	}
	result.Success = success
	result.Diffs = diffs

	return result, nil
}

// mergedRequest overlays the testcase request onto a deep copy of the
// suite defaults. The copy guarantees a testcase can never mutate the
// defaults seen by its siblings.
func (r *Runner) mergedRequest(caseRequest map[string]any) map[string]any {
	merged := make(map[string]any)
	if len(r.suiteRequest) > 0 {
		merged = deepcopy.Copy(r.suiteRequest).(map[string]any)
	}
	for key, value := range caseRequest {
		merged[key] = value
	}
	return merged
}

// RunTestSet applies the testset's config at testset level, then runs
// its testcases in order. A testcase error is recorded as a failed
// Result and execution continues, unless Bail is set.
func (r *Runner) RunTestSet(ts model.TestSet) ([]*Result, error) {
	if err := r.ApplyConfig(ts.Config, LevelTestSet); err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(ts.TestCases))
	for _, tc := range ts.TestCases {
		result, err := r.RunTest(tc)
		if err != nil {
			results = append(results, &Result{Name: tc.Name, Err: err})
			if r.config.Bail {
				return results, err
			}
			continue
		}
		results = append(results, result)
		if !result.Success && r.config.Bail {
			break
		}
	}
	return results, nil
}

// RunTestSets runs every testset in input order and returns results
// index-aligned with the input. The shared Context accretes across
// testsets. A testset-level error (config application, or a testcase
// error under Bail) aborts the remaining testsets.
func (r *Runner) RunTestSets(testsets []model.TestSet) ([][]*Result, error) {
	all := make([][]*Result, 0, len(testsets))
	for _, ts := range testsets {
		results, err := r.RunTestSet(ts)
		all = append(all, results)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

func hasStringKey(m map[string]any, key string) bool {
	s, ok := m[key].(string)
	return ok && s != ""
}
