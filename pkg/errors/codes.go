package errors

// JSON-RPC 2.0 standard error codes.
const (
	// CodeParseError indicates invalid JSON was received
	CodeParseError int = -32700

	// CodeInvalidRequest indicates the payload is not a valid Request object
	CodeInvalidRequest int = -32600

	// CodeMethodNotFound indicates the method does not exist / is not available
	CodeMethodNotFound int = -32601

	// CodeInvalidParams indicates invalid method parameter(s)
	CodeInvalidParams int = -32602

	// CodeInternalError indicates an internal JSON-RPC error
	CodeInternalError int = -32603
)

// mcpwire-specific error codes, grouped by block within the reserved range.
const (
	// Server errors (-32000 to -32099): remote-side internal failures
	CodeServerFault int = -32000

	// Authentication errors (-32100 to -32199)
	CodeAuthRejected int = -32100
	CodeTokenExpired int = -32103

	// Rate limiting (-32120 to -32129)
	CodeRateLimited int = -32120

	// Operation errors (-32300 to -32399)
	CodeCallTimeout   int = -32301
	CodeCallCancelled int = -32302

	// Transport errors (-32500 to -32599)
	CodeTransportError    int = -32500
	CodeConnectionFailed  int = -32501
	CodeConnectionLost    int = -32502
	CodeConnectionTimeout int = -32503
	CodeTransportClosed   int = -32504

	// Protocol errors (-32900 to -32999)
	CodeMalformedEnvelope int = -32900
	CodeVersionMismatch   int = -32901
)

// codeCategories maps error codes to their classification. Codes absent from
// the map fall back to CategoryServer, since unrecognized codes originate
// from the remote side.
var codeCategories = map[int]Category{
	CodeParseError:        CategoryProtocol,
	CodeInvalidRequest:    CategoryProtocol,
	CodeMethodNotFound:    CategoryProtocol,
	CodeInvalidParams:     CategoryProtocol,
	CodeInternalError:     CategoryServer,
	CodeServerFault:       CategoryServer,
	CodeAuthRejected:      CategoryAuth,
	CodeTokenExpired:      CategoryAuth,
	CodeRateLimited:       CategoryRateLimit,
	CodeCallTimeout:       CategoryTimeout,
	CodeCallCancelled:     CategoryTimeout,
	CodeTransportError:    CategoryConnection,
	CodeConnectionFailed:  CategoryConnection,
	CodeConnectionLost:    CategoryConnection,
	CodeConnectionTimeout: CategoryConnection,
	CodeTransportClosed:   CategoryConnection,
	CodeMalformedEnvelope: CategoryProtocol,
	CodeVersionMismatch:   CategoryProtocol,
}

// CategoryForCode returns the category an error code classifies into.
func CategoryForCode(code int) Category {
	if cat, ok := codeCategories[code]; ok {
		return cat
	}
	if code >= -32199 && code <= -32100 {
		return CategoryAuth
	}
	if code >= -32768 && code <= -32600 {
		return CategoryProtocol
	}
	return CategoryServer
}
