// Package parser loads OpenAPI 3.x and Swagger 2.0 documents into the
// apispec endpoint model used for change detection.
//
// Documents are read with kin-openapi. Swagger 2.0 is converted to OpenAPI 3
// first and its basePath is prepended to every path. YAML and JSON are both
// accepted regardless of file extension.
//
// # Quick Start
//
//	spec, err := parser.Load("openapi.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, e := range spec.Endpoints {
//		fmt.Println(e.Method, e.Path)
//	}
//
// Or with functional options:
//
//	spec, err := parser.LoadWithOptions(
//		parser.WithFilePath("openapi.yaml"),
//		parser.WithExternalRefs(true),
//	)
//
// # Endpoint Mapping
//
// Endpoints are emitted sorted by path, then in the order GET, POST, PUT,
// PATCH, DELETE, HEAD, OPTIONS, TRACE. Path-level parameters are merged into
// each operation unless the operation redefines the same (in, name) pair.
// The request body schema is taken from the JSON media type when present,
// with its top-level $ref resolved; nested references stay as $ref objects.
// Every key of the responses object becomes a response code.
//
// Any failure is reported as a *jmxerrors.SpecError.
package parser
