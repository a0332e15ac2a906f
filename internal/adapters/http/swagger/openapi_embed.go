package swagger

import (
	"embed"
	"io/fs"
)

//go:generate curl -sSfL -o static/redoc.standalone.js https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js

// OpenAPI contains the embedded OpenAPI YAML specification.
//
//go:embed openapi.yaml
var OpenAPI []byte

//go:embed static
var static embed.FS

// RedocJS contains the embedded ReDoc standalone JavaScript. It is empty
// until `go generate` has vendored the bundle into static/.
var RedocJS = mustRead("static/redoc.standalone.js")

func mustRead(name string) []byte {
	b, err := fs.ReadFile(static, name)
	if err != nil {
		return nil
	}
	return b
}
