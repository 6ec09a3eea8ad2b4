package client

import "encoding/json"

// Account is the /whoami payload.
type Account struct {
	Org         string `json:"org"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	ID          string `json:"id,omitempty"`
}

// User is an atSpoke user.
type User struct {
	ID                 string          `json:"id"`
	DisplayName        string          `json:"displayName"`
	Email              string          `json:"email"`
	IsEmailVerified    *bool           `json:"isEmailVerified,omitempty"`
	IsProfileCompleted *bool           `json:"isProfileCompleted,omitempty"`
	Status             string          `json:"status,omitempty"`
	Profile            json.RawMessage `json:"profile,omitempty"`
	Memberships        []string        `json:"memberships,omitempty"`
	StartDate          string          `json:"startDate,omitempty"`

	// Raw is the payload as the provider sent it.
	Raw json.RawMessage `json:"-"`
}

// Team is an atSpoke team.
type Team struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Keywords    []string        `json:"keywords"`
	Icon        string          `json:"icon"`
	Color       string          `json:"color"`
	Status      string          `json:"status"`
	Goals       json.RawMessage `json:"goals,omitempty"`
	AgentList   []AgentListItem `json:"agentList,omitempty"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
	Owner       string          `json:"owner"`
	Org         string          `json:"org"`
	Email       string          `json:"email"`
	Permalink   string          `json:"permalink"`
	Settings    json.RawMessage `json:"settings,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// AgentListItem is one team member.
type AgentListItem struct {
	Timestamps json.RawMessage `json:"timestamps,omitempty"`
	Status     string          `json:"status"`
	TeamRole   string          `json:"teamRole"`
	User       User            `json:"user"`
}

// Webhook is an outbound webhook registration.
type Webhook struct {
	ID          string   `json:"id"`
	Enabled     bool     `json:"enabled"`
	Topics      []string `json:"topics"`
	URL         string   `json:"url"`
	Client      string   `json:"client"`
	Description string   `json:"description"`

	Raw json.RawMessage `json:"-"`
}

// Request is a helpdesk request (ticket).
type Request struct {
	ID           string `json:"id"`
	Subject      string `json:"subject"`
	Requester    string `json:"requester"`
	Owner        string `json:"owner"`
	Status       string `json:"status"`
	PrivacyLevel string `json:"privacyLevel"`
	Team         string `json:"team"`
	Org          string `json:"org"`
	Permalink    string `json:"permalink"`
	RequestType  string `json:"requestType,omitempty"`
	// RequestTypeInfo is a denormalized copy of the request type. It is not
	// retained on the Record entity.
	RequestTypeInfo json.RawMessage `json:"requestTypeInfo,omitempty"`
	IsAutoResolve   bool            `json:"isAutoResolve"`
	IsFiled         bool            `json:"isFiled"`
	Email           string          `json:"email"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`

	Raw json.RawMessage `json:"-"`
}

// LastUpdated implements pagination.Timestamped.
func (r Request) LastUpdated() string {
	return r.UpdatedAt
}

// RequestType is a request template/category.
type RequestType struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps a copy of the payload in Raw.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = User(p)
	u.Raw = keep(data)
	return nil
}

// UnmarshalJSON keeps a copy of the payload in Raw.
func (t *Team) UnmarshalJSON(data []byte) error {
	type plain Team
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Team(p)
	t.Raw = keep(data)
	return nil
}

// UnmarshalJSON keeps a copy of the payload in Raw.
func (w *Webhook) UnmarshalJSON(data []byte) error {
	type plain Webhook
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*w = Webhook(p)
	w.Raw = keep(data)
	return nil
}

// UnmarshalJSON keeps a copy of the payload in Raw.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Request(p)
	r.Raw = keep(data)
	return nil
}

// UnmarshalJSON keeps a copy of the payload in Raw.
func (rt *RequestType) UnmarshalJSON(data []byte) error {
	type plain RequestType
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*rt = RequestType(p)
	rt.Raw = keep(data)
	return nil
}

// keep copies data; the decoder may reuse its buffer.
func keep(data []byte) json.RawMessage {
	return append(json.RawMessage(nil), data...)
}
