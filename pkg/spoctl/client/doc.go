// Package client talks to the SharePoint REST API of a single site. Every
// call carries a bearer token; state-changing calls additionally carry the
// form digest obtained from /_api/contextinfo.
package client
