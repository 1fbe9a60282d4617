// Package mirror talks to third-party sites that mirror public Instagram
// stories and highlights.
//
// A Variant bundles everything that differs between mirror sites: base URL,
// page paths, the marker texts used to classify profile pages and the CSS
// selectors for media and highlight links. Two variants are built in,
// "insta-stories" and "storiesig"; the base URL of either can be overridden.
//
//	m, err := mirror.FromConfig(cfg, terminal, log)
//	profile, err := m.Resolve(ctx, "alice")
//	if profile.Accessible() {
//		links, err := m.ListStories(ctx, profile)
//		...
//	}
//
// Page classification goes through the Classifier interface so the marker
// strings can be replaced without touching the control flow.
package mirror
