package proxy

import (
	"net/http"
	"net/http/httputil"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/resolver"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/util"
)

// ServeHTTP forwards the request to the API target.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.track(nil) {
		defer h.untrack(nil)
	}
	h.proxy.ServeHTTP(w, r)
}

// rewrite points the outgoing request at the target. The path of the
// matched acceptor is replaced by the target path.
func (h *Handler) rewrite(pr *httputil.ProxyRequest) {
	path := pr.In.URL.Path
	if a, ok := resolver.FromContext(pr.In.Context()); ok {
		if ha, ok := a.(*acceptor.HTTPAcceptor); ok {
			path = StripPrefix(path, ha.Path())
		}
	}

	pr.Out.URL.Scheme = h.target.Scheme
	pr.Out.URL.Host = h.target.Host
	pr.Out.URL.Path = joinPath(h.target.Path, path)
	pr.Out.URL.RawPath = ""
	switch {
	case h.target.RawQuery == "":
	case pr.Out.URL.RawQuery == "":
		pr.Out.URL.RawQuery = h.target.RawQuery
	default:
		pr.Out.URL.RawQuery = h.target.RawQuery + "&" + pr.Out.URL.RawQuery
	}
	pr.Out.Host = h.target.Host

	pr.SetXForwarded()
	if id := util.RequestIDFromContext(pr.In.Context()); id != "" {
		pr.Out.Header.Set(util.HeaderRequestID, id)
	}
	observability.InjectTraceContext(pr.In.Context(), pr.Out)
}

func (h *Handler) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("proxy error",
		observability.String("path", r.URL.Path),
		observability.String("method", r.Method),
		observability.String("target", h.target.Host),
		observability.Error(err),
	)
	util.WriteJSONError(w, r, http.StatusBadGateway, "failed to proxy request")
}
