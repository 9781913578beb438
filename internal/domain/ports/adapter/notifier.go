package adapter

import "context"

// AdminNotifier pushes short operational notices (new activations, gateway
// failures) to the operators' channel. Implementations must be best-effort;
// callers log and continue on error.
type AdminNotifier interface {
	Notify(ctx context.Context, text string) error
}
