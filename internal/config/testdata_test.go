package config

// validConfigYAML is a minimal valid configuration for testing
const validConfigYAML = `
apiVersion: gateway.avapigw.io/v1
kind: Gateway
metadata:
  name: test-gateway
spec:
  servers:
    - id: public
      kind: http
      address: ":8080"
    - id: tls
      kind: tcp
      address: ":8443"
  apis:
    - id: products
      name: Products
      target: http://localhost:8081
      virtualHosts:
        - path: /products
        - host: api.gravitee.io
          path: /products/v2
          serverIds: [public]
    - id: acme
      target: tcp://localhost:9443
      tcpHosts:
        - host: acme.com
          serverIds: [tls]
`

// invalidConfigYAML is an invalid configuration for testing error handling
const invalidConfigYAML = `
apiVersion: gateway.avapigw.io/v1
kind: Gateway
metadata:
  name: test-gateway
spec:
  servers:
    - id: ""
      address: "nope"
`
