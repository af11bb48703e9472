package roster

// ExampleRow exposes the template sample row to external tests.
var ExampleRow = exampleRow

// WrapCFB exposes the compound-file writer so tests can build .xls input.
var WrapCFB = wrapCFB
