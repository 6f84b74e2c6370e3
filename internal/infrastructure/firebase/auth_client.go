package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// Identity is the caller extracted from a verified ID token.
type Identity struct {
	UID  string
	Role string
}

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken checks the ID token and reads the role custom claim.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	identity := &Identity{UID: result.UID}
	if role, ok := result.Claims["role"].(string); ok {
		identity.Role = role
	}
	return identity, nil
}

// SetRole writes the role custom claim used for admin checks.
func (f *FirebaseAuthClient) SetRole(ctx context.Context, uid, role string) error {
	return f.client.SetCustomUserClaims(ctx, uid, map[string]interface{}{"role": role})
}

func (f *FirebaseAuthClient) GenerateToken(ctx context.Context, uid string) (string, error) {
	return f.client.CustomToken(ctx, uid)
}
