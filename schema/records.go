package schema

// Application is an admission request for a nursery or kindergarten place.
// Collection: "application".
type Application struct {
	// ChildName, ParentName and Phone must be present; an empty string is accepted.
	ChildName *string `json:"child_name" validate:"required"`
	DOB       string  `json:"dob" validate:"required,datetime=2006-01-02"`
	Gender    *string `json:"gender,omitempty" validate:"omitempty,oneof=Male Female Non-binary 'Prefer not to say'"`
	Program   string  `json:"program" validate:"required,oneof=Nursery Pre-K Kindergarten"`
	StartTerm string  `json:"start_term" validate:"required,oneof=Fall Winter Spring Summer"`

	ParentName *string `json:"parent_name" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Phone      *string `json:"phone" validate:"required"`
	Address    *string `json:"address,omitempty"`

	Message *string `json:"message,omitempty"`
	// Consent only has to be present here; it must also be true to submit,
	// which the handler enforces.
	Consent *bool `json:"consent" validate:"required"`

	// Status defaults to submitted only when absent; "" is rejected.
	Status *string `json:"status" validate:"required,oneof=submitted reviewed accepted waitlisted rejected"`
}

// Application statuses.
const (
	StatusSubmitted  = "submitted"
	StatusReviewed   = "reviewed"
	StatusAccepted   = "accepted"
	StatusWaitlisted = "waitlisted"
	StatusRejected   = "rejected"
)

func (a *Application) Kind() Kind { return KindApplication }

func (a *Application) ApplyDefaults() {
	if a.Status == nil {
		s := StatusSubmitted
		a.Status = &s
	}
}

// Consented reports whether the guardian agreed to data processing.
func (a *Application) Consented() bool {
	return a.Consent != nil && *a.Consent
}

// User is an example schema with no routes.
type User struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Address  string `json:"address" validate:"required"`
	Age      *int   `json:"age,omitempty" validate:"omitempty,gte=0,lte=120"`
	IsActive *bool  `json:"is_active"`
}

func (u *User) Kind() Kind { return KindUser }

func (u *User) ApplyDefaults() {
	if u.IsActive == nil {
		t := true
		u.IsActive = &t
	}
}

// Product is an example schema with no routes.
type Product struct {
	Title       string   `json:"title" validate:"required"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Category    string   `json:"category" validate:"required"`
	InStock     *bool    `json:"in_stock"`
}

func (p *Product) Kind() Kind { return KindProduct }

func (p *Product) ApplyDefaults() {
	if p.InStock == nil {
		t := true
		p.InStock = &t
	}
}
