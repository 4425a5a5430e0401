package httpapi

import "context"

// serverBaseCtx is canceled on shutdown so in-flight transcribe awaits
// unwind together with the server. Background until SetBaseContext runs.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// joinContexts derives a context from base that is additionally canceled
// when req ends. The returned cancel must be called when the handler
// returns to release the AfterFunc registration.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(base)
	stop := context.AfterFunc(req, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
