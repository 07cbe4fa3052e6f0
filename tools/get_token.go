//go:build ignore

// get_token walks through the OAuth2 consent flow once and prints the
// refresh token the gmail mail transport needs.
//
//	GMAIL_CLIENT_ID=... GMAIL_CLIENT_SECRET=... go run tools/get_token.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

func main() {
	clientID := os.Getenv("GMAIL_CLIENT_ID")
	clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")

	if clientID == "" || clientSecret == "" {
		logrus.Fatal("Please set GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET environment variables")
	}

	redirect := os.Getenv("GMAIL_REDIRECT_URL")
	if redirect == "" {
		redirect = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
	}

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("Go to the following link in your browser: %v\n", authURL)
	fmt.Println("\nAfter authorization you will be redirected. Copy the 'code' parameter from that URL.")

	var authCode string
	fmt.Print("\nEnter the authorization code: ")
	if _, err := fmt.Scan(&authCode); err != nil {
		logrus.Fatalf("Unable to read authorization code: %v", err)
	}

	tok, err := config.Exchange(context.Background(), authCode)
	if err != nil {
		logrus.Fatalf("Unable to retrieve token from web: %v", err)
	}
	if tok.RefreshToken == "" {
		logrus.Fatal("No refresh token returned; revoke the app's access and try again")
	}

	fmt.Println("\nSet these before starting message-scheduler with MAIL_TRANSPORT=gmail:")
	fmt.Printf("export GMAIL_REFRESH_TOKEN=%q\n", tok.RefreshToken)
	fmt.Println("export GMAIL_USER_EMAIL=\"<the account you just authorized>\"")
}
