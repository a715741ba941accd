// Package appid resolves platelog's application identity. The copy of
// .fulmen/app.yaml embedded here is the fallback for standalone binaries;
// FULMEN_APP_IDENTITY_PATH and a discoverable .fulmen/app.yaml still win.
package appid

import (
	"context"
	_ "embed"

	"github.com/fulmenhq/gofulmen/appidentity"
)

//go:embed app.yaml
var embeddedYAML []byte

func init() {
	_ = register()
}

func register() error {
	return appidentity.RegisterEmbeddedIdentityYAML(embeddedYAML)
}

// Get returns the process identity, loading it on first use.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// Reload drops the cached identity and re-registers the embedded copy.
// Tests use it to isolate identity lookups.
func Reload() error {
	appidentity.Reset()
	return register()
}
