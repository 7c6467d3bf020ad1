package protocol

import "strings"

// Method is the numeric code identifying an endpoint on the wire.
type Method uint32

// Identity service endpoints.
const (
	MethodPublicConnect             Method = 0
	MethodStartAuth                 Method = 10
	MethodSignup                    Method = 11
	MethodSubmitUsername            Method = 12
	MethodSubmitPassword            Method = 13
	MethodRefreshTokenExchange      Method = 14
	MethodTokenRevoke               Method = 15
	MethodAPIKeyConnect             Method = 100
	MethodTokenIntrospect           Method = 110
	MethodSubscribeTokenRevocations Method = 111
)

// App endpoints served by integrating backends.
const (
	MethodAuthorizedConnect Method = 1
	MethodReceiveToken      Method = 120
	MethodReceiveUserInfo   Method = 121
)

// Endpoint describes one RPC method: its code, the roles allowed to call it,
// and whether it establishes a connection's roles.
type Endpoint struct {
	Method      Method
	Name        string
	Roles       []Role
	Connect     bool
	Description string
}

// LowerName is the lowercase endpoint name used in sub-protocol headers.
func (e Endpoint) LowerName() string {
	return strings.ToLower(e.Name)
}

// Allows reports whether a connection holding roles may call the endpoint.
func (e Endpoint) Allows(roles []Role) bool {
	return RolesIntersect(roles, e.Roles)
}

var (
	EndpointPublicConnect = Endpoint{
		Method: MethodPublicConnect, Name: "PublicConnect", Roles: []Role{RolePublic}, Connect: true,
		Description: "Opens a session limited to public endpoints.",
	}
	EndpointStartAuth = Endpoint{
		Method: MethodStartAuth, Name: "StartAuth", Roles: []Role{RolePublic},
		Description: "Starts the auth flow for an app. Session is stored per connection.",
	}
	EndpointSignup = Endpoint{
		Method: MethodSignup, Name: "Signup", Roles: []Role{RolePublic},
		Description: "Creates a user account and returns tokens.",
	}
	EndpointSubmitUsername = Endpoint{
		Method: MethodSubmitUsername, Name: "SubmitUsername", Roles: []Role{RolePublic},
		Description: "Step 1 of login. Session is stored per connection.",
	}
	EndpointSubmitPassword = Endpoint{
		Method: MethodSubmitPassword, Name: "SubmitPassword", Roles: []Role{RolePublic},
		Description: "Step 2 of login. Returns tokens.",
	}
	EndpointRefreshTokenExchange = Endpoint{
		Method: MethodRefreshTokenExchange, Name: "RefreshTokenExchange", Roles: []Role{RolePublic},
		Description: "Exchanges a refresh token for new tokens.",
	}
	EndpointTokenRevoke = Endpoint{
		Method: MethodTokenRevoke, Name: "TokenRevoke", Roles: []Role{RolePublic},
		Description: "Revokes an access or refresh token.",
	}
	EndpointAPIKeyConnect = Endpoint{
		Method: MethodAPIKeyConnect, Name: "ApiKeyConnect", Roles: []Role{RolePublic}, Connect: true,
		Description: "Opens a service session authenticated by a pre-shared API key.",
	}
	EndpointTokenIntrospect = Endpoint{
		Method: MethodTokenIntrospect, Name: "TokenIntrospect", Roles: []Role{RoleAppAPIKey},
		Description: "Reports whether a token is active and who owns it.",
	}
	EndpointSubscribeTokenRevocations = Endpoint{
		Method: MethodSubscribeTokenRevocations, Name: "SubscribeTokenRevocations", Roles: []Role{RoleAppAPIKey},
		Description: "Subscribes to token revocation notices.",
	}

	EndpointAuthorizedConnect = Endpoint{
		Method: MethodAuthorizedConnect, Name: "AuthorizedConnect", Roles: []Role{RolePublic}, Connect: true,
		Description: "Opens a user session authenticated by an access token.",
	}
	EndpointReceiveToken = Endpoint{
		Method: MethodReceiveToken, Name: "ReceiveToken", Roles: []Role{RoleAppAPIKey},
		Description: "Identity service pushes a newly issued access token.",
	}
	EndpointReceiveUserInfo = Endpoint{
		Method: MethodReceiveUserInfo, Name: "ReceiveUserInfo", Roles: []Role{RoleAppAPIKey},
		Description: "Identity service pushes user profile fields and an optional token.",
	}
)

// IdentityServiceEndpoints lists the endpoints exposed by honey.id.
var IdentityServiceEndpoints = []Endpoint{
	EndpointPublicConnect,
	EndpointStartAuth,
	EndpointSignup,
	EndpointSubmitUsername,
	EndpointSubmitPassword,
	EndpointRefreshTokenExchange,
	EndpointTokenRevoke,
	EndpointAPIKeyConnect,
	EndpointTokenIntrospect,
	EndpointSubscribeTokenRevocations,
}

// AppEndpoints lists the endpoints an integrating app serves.
var AppEndpoints = []Endpoint{
	EndpointPublicConnect,
	EndpointAuthorizedConnect,
	EndpointAPIKeyConnect,
	EndpointReceiveToken,
	EndpointReceiveUserInfo,
}

// LookupEndpoint finds an endpoint by method code in table.
func LookupEndpoint(table []Endpoint, m Method) (Endpoint, bool) {
	for _, e := range table {
		if e.Method == m {
			return e, true
		}
	}
	return Endpoint{}, false
}
