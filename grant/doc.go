// Package grant implements the client side of the OAuth2 JWT Bearer grant (RFC 7523)
// used by service-account credentials.
//
// A Client signs a short-lived RS256 assertion with the credential's private key,
// exchanges it at the token endpoint for an access token, and keeps the token in a
// single-slot cache until it expires:
//
//	creds, err := grant.NewCredentials("svc@project.iam.gserviceaccount.com", signer)
//	if err != nil {
//	    return err
//	}
//	client, err := grant.New(creds, []string{"https://www.googleapis.com/auth/cloud-platform"})
//	if err != nil {
//	    return err
//	}
//	token, err := client.GetToken(ctx)
//
// The signing key is any crypto.Signer with an RSA public key of at least 2048 bits,
// so keys held in a KMS work the same way as in-memory keys.
package grant
