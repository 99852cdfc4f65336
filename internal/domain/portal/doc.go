// Package portal contains the Bitrix24 portal bounded context.
// It defines the vocabulary shared by the proxy service and the dashboard client.
//
// Key concepts:
//   - Session: port interface for invoking portal REST methods (single and batch)
//   - Auth: credentials of one portal session (domain, access token, member ID)
//   - Response: one page of a method call, with an explicit continuation Cursor
//   - BatchRequest: ordered set of keyed method invocations sent as one call
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (portal REST client, proxy client, fixture mock) live in the infrastructure layer
package portal
