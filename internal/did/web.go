package did

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// WebURL maps a did:web identifier to the URL of its document.
// did:web:example.com resolves to https://example.com/.well-known/did.json and
// did:web:example.com:a:b to https://example.com/a/b/did.json. A port is
// written percent-encoded, as in did:web:localhost%3A8443.
func WebURL(id ID) (string, error) {
	parts := strings.Split(id.Identifier, ":")
	segments := make([]string, len(parts))
	for i, part := range parts {
		decoded, err := url.PathUnescape(part)
		if err != nil {
			return "", fmt.Errorf("invalid did:web segment %q: %w", part, err)
		}
		if decoded == "" {
			return "", fmt.Errorf("empty did:web segment in %q", id.Identifier)
		}
		if strings.ContainsAny(decoded, "/?#") {
			return "", fmt.Errorf("invalid character in did:web segment %q", decoded)
		}
		segments[i] = decoded
	}

	host := segments[0]
	if len(segments) == 1 {
		return "https://" + host + "/.well-known/did.json", nil
	}
	return "https://" + host + "/" + strings.Join(segments[1:], "/") + "/did.json", nil
}

func (r *MethodResolver) resolveWeb(ctx context.Context, did string, id ID, probe ResolutionProbe) *ResolutionResult {
	target, err := WebURL(id)
	if err != nil {
		return r.invalid(did, id.Method, err)
	}

	body, err := r.fetch(ctx, target)
	if err != nil {
		probe.FetchFailed(target, err)
		probe.PlaceholderUsed("document unavailable")
		return r.placeholder(did, id.Method, PlaceholderDocument(did))
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		probe.FetchFailed(target, fmt.Errorf("failed to decode document: %w", err))
		probe.PlaceholderUsed("document undecodable")
		return r.placeholder(did, id.Method, PlaceholderDocument(did))
	}

	if doc.ID != did {
		return r.invalid(did, id.Method, fmt.Errorf("document id %q does not match %s", doc.ID, did))
	}

	return r.resolved(did, id.Method, &doc)
}
