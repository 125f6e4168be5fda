package eqwalizer

// embeddedExe holds the bundled checker executable. Release builds populate
// it through a generated file in this package; source builds leave it empty
// and require ELP_EQWALIZER_PATH.
var embeddedExe []byte

// embeddedExt is the file extension of the bundled executable: "" for a
// native binary, "jar" for a JVM bundle. Injected by the release build via
// -ldflags -X.
var embeddedExt string
