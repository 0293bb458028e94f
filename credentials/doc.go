// Package credentials loads signing credentials and client configuration
// for the JWT Bearer grant: Google service account key files
// and YAML or JSON client configs that produce grant.Client.
package credentials
