package domain

// Profile is the denormalized KYC row written next to the provider's own
// account record. IdentityID is the provider's user id.
type Profile struct {
	IdentityID  string  `json:"auth_user_id"  bson:"auth_user_id"`
	Username    string  `json:"username"      bson:"username"`
	Email       string  `json:"email"         bson:"email"`
	PhoneNumber string  `json:"phone_number"  bson:"phone_number"`
	Address     string  `json:"address"       bson:"address"`
	Industry    string  `json:"industry"      bson:"industry"`
	Profession  string  `json:"profession"    bson:"profession"`
	CreditCard  *string `json:"credit_card"   bson:"credit_card"`
}

// Identity is what the identity provider returns for a created or verified account.
type Identity struct {
	ID             string
	Email          string
	EmailConfirmed bool
}

const (
	ProfileColumnUsername = "username"
	ProfileColumnEmail    = "email"
)
