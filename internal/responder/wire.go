// internal/responder/wire.go
package responder

// Wire images of every response this node can give. The trailing
// spaces inside header lines are part of the format the deployed
// display clients were built against; do not tidy them.
const (
	headerOK = "HTTP/1.1 200 OK \r\n" +
		"Content-Type: text/plain \r\n" +
		"Connection: close \r\n" +
		"Refresh: 5 \r\n" +
		"\r\n"

	respOverflow = "HTTP/1.1 431 Request Header Fields Too Large \r\n\r\n"

	respNotGet = "HTTP/1.1 405 Method Not Allowed \r\n\r\n"

	respNotTemp = "HTTP/1.1 501 Not Implemented \r\n\r\n" +
		"Only temperature(/temp) requests supported.\r\n"

	respUnknown = "HTTP/1.1 520 Unknown Error \r\n\r\n"
)

// temperaturePath is the only request path the node answers.
const temperaturePath = "/temp"

// fractionDigits is the fixed fractional precision of served values.
const fractionDigits = 5
