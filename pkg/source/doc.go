// Package source loads templates and model data.
//
// A Store opens named files. DirStore reads a local directory and S3Store
// reads objects under a bucket prefix. LoadTemplate parses HTML into a
// bindable node, LoadData decodes YAML or JSON into maps and slices the
// observe package can wrap.
package source
