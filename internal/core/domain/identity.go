package domain

// PsuData identifies a payment service user. All fields beyond ID are
// optional and only used when the TPP forwards them.
type PsuData struct {
	ID            string
	IDType        string
	CorporateID   string
	CorporateType string
	IPAddress     string
}

// Empty reports whether no PSU identification was supplied at all.
func (p PsuData) Empty() bool {
	return p.ID == "" && p.CorporateID == ""
}

// Matches compares the identifying fields, ignoring transport details such as
// the IP address.
func (p PsuData) Matches(other PsuData) bool {
	return p.ID == other.ID &&
		p.IDType == other.IDType &&
		p.CorporateID == other.CorporateID &&
		p.CorporateType == other.CorporateType
}

// TppInfo identifies the third party provider acting on a resource, taken
// from its eIDAS certificate.
type TppInfo struct {
	AuthorisationNumber string
	AuthorityID         string
	Name                string
	Roles               []string
}

// Matches reports whether two TPP identities refer to the same registered
// provider.
func (t TppInfo) Matches(other TppInfo) bool {
	return t.AuthorisationNumber == other.AuthorisationNumber &&
		t.AuthorityID == other.AuthorityID
}

// AccountReference addresses an account by one of its identifiers.
type AccountReference struct {
	IBAN     string
	BBAN     string
	PAN      string
	MSISDN   string
	Currency string
}

// Amount is a monetary amount. The value is kept as the decimal string the
// TPP sent; the engine never does arithmetic on it.
type Amount struct {
	Currency string
	Value    string
}

// AuthMethod is one SCA method the backend offers to a PSU.
type AuthMethod struct {
	ID          string
	Type        string
	Name        string
	Explanation string
}

// Challenge carries the data a PSU needs to answer an SCA challenge.
type Challenge struct {
	Image          string
	Data           []string
	ImageLink      string
	OtpMaxLength   int
	OtpFormat      string
	AdditionalInfo string
}
