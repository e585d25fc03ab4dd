package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const routesConfig = `
apiVersion: gateway.avapigw.io/v1
kind: Gateway
metadata:
  name: test
spec:
  servers:
    - id: public
      kind: http
      address: ":8080"
    - id: tls
      kind: tcp
      address: ":8443"
  apis:
    - id: products-v1
      name: Products v1
      target: http://products-v1:8080
      virtualHosts:
        - path: /products/v1
    - id: products-v2
      name: Products v2
      target: http://products-v2:8080
      virtualHosts:
        - host: api.gravitee.io
          path: /products/v2
          serverIds: [public]
    - id: db
      name: Database
      target: tcp://db:5432
      tcpHosts:
        - host: db.example.com
          serverIds: [tls]
`

// writeConfig stores content in a temporary configuration file.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
