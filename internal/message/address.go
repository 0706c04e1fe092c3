package message

import (
	"regexp"
	"strings"
)

// Address is one participant extracted from a From/To/Cc header.
type Address struct {
	Email     string
	FirstName string
	LastName  string
}

// Matches both `Display Name <user@host>` and bare `user@host` forms.
var addressRe = regexp.MustCompile(`([^<>,]+)?<([^<>\s]+@[^<>\s]+)>|([^<>,\s]+@[^<>,\s]+)`)

// ExtractAddresses pulls addresses and display names out of decoded header
// text. The display name is split on whitespace: first token becomes the
// first name, the remainder joined becomes the last name.
func ExtractAddresses(header string) []Address {
	if strings.TrimSpace(header) == "" {
		return nil
	}

	var out []Address
	for _, match := range addressRe.FindAllStringSubmatch(header, -1) {
		var email, name string
		switch {
		case match[2] != "":
			email = strings.TrimSpace(match[2])
			name = strings.Trim(strings.TrimSpace(match[1]), `"`)
		case match[3] != "":
			email = strings.TrimSpace(match[3])
		}
		if email == "" {
			continue
		}

		addr := Address{Email: email}
		if name != "" {
			tokens := strings.Fields(name)
			addr.FirstName = tokens[0]
			if len(tokens) > 1 {
				addr.LastName = strings.Join(tokens[1:], " ")
			}
		}
		out = append(out, addr)
	}
	return out
}
