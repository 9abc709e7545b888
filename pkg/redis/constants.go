package redis

// Redis namespaces defines the top-level key prefixes for different types of data
const (
	NamespaceRadar = "radar" // All impact radar data
)

// Redis contexts defines the second-level key prefixes for specific domains
const (
	ContextStream  = "stream"  // Live feed mirror data
	ContextGateway = "gateway" // Gateway bookkeeping data
)
