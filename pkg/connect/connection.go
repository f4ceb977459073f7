package connect

// Service is a service taking part in a Connection.
type Service struct {
	ID        string `json:"service_id"`
	Name      string `json:"service_name"`
	ShortName string `json:"service_short_name,omitempty"`
	IsPrimary bool   `json:"is_primary"`
	URL       string `json:"url,omitempty"`
}

// Connection is the metadata of a named integration between the user's
// account and the platform.
type Connection struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Status      ConnectionStatus `json:"user_status"`
	URL         string           `json:"url,omitempty"`
	Services    []Service        `json:"services,omitempty"`
}

// PrimaryService returns the owner service of the Connection, or nil when
// none is flagged as primary.
func (c *Connection) PrimaryService() *Service {
	for i := range c.Services {
		if c.Services[i].IsPrimary {
			return &c.Services[i]
		}
	}
	return nil
}

// AuthenticationLevel is the authentication scope the platform saw for a call.
type AuthenticationLevel string

const (
	// AuthenticationNone means the request carried no credentials.
	AuthenticationNone AuthenticationLevel = "none"
	// AuthenticationUser means the request carried a platform user token.
	AuthenticationUser AuthenticationLevel = "user"
)

// User is the platform's view of the caller.
type User struct {
	AuthenticationLevel AuthenticationLevel `json:"authentication_level"`
	ServiceID           string              `json:"service_id,omitempty"`
	UserLogin           string              `json:"user_login,omitempty"`
}
