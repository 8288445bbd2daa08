package api

import (
	"bytes"
	"encoding/json"
	"time"
)

// Domain is an entry of the GET /domains collection.
type Domain struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	IsActive  bool   `json:"isActive"`
	IsPrivate bool   `json:"isPrivate"`
}

// Credentials is the body of POST /accounts and POST /token.
type Credentials struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}

// Account is the POST /accounts response.
type Account struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// Token is the POST /token response.
type Token struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// Address is a mailbox address with an optional display name.
type Address struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Message is one raw record of the GET /messages collection.
// From is a pointer because the provider may omit the sender.
type Message struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"accountId"`
	MsgID          string    `json:"msgid"`
	From           *Address  `json:"from"`
	To             []Address `json:"to"`
	Subject        string    `json:"subject"`
	Intro          string    `json:"intro"`
	Seen           bool      `json:"seen"`
	IsDeleted      bool      `json:"isDeleted"`
	HasAttachments bool      `json:"hasAttachments"`
	Size           int       `json:"size"`
	DownloadURL    string    `json:"downloadUrl"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Attachment is an attachment reference of a message detail.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Disposition string `json:"disposition"`
	Size        int    `json:"size"`
	DownloadURL string `json:"downloadUrl"`
}

// MessageDetail is the GET /messages/{id} response.
type MessageDetail struct {
	Message
	Text        string       `json:"text"`
	HTML        []string     `json:"html"`
	Attachments []Attachment `json:"attachments"`
}

// collection decodes a provider list response. mail.tm answers either with
// a bare JSON array or with a JSON-LD document carrying "hydra:member",
// depending on the negotiated content type.
type collection[T any] struct {
	Items []T
}

func (c *collection[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &c.Items)
	}

	var doc struct {
		Member *[]T `json:"hydra:member"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Member == nil {
		return errMissingMember
	}
	c.Items = *doc.Member
	return nil
}
