package generation

import "context"

// Offline always fails with KindUnavailable. Used when no backend is configured.
type Offline struct {
	Reason string
}

func (o Offline) Generate(context.Context, Request) (Response, error) {
	return Response{}, &Error{Kind: KindUnavailable, Provider: ProviderOffline, Message: o.Reason}
}
