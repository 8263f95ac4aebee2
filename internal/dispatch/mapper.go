// Package dispatch implements lead forwarding to downstream buyer
// endpoints: the pure attribute-to-request mapping and the HTTP dispatcher
// that performs the single-attempt webhook call.
package dispatch

import (
	"strings"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// BuildRequest translates a route's ordered attribute descriptors plus a
// lead into the outgoing request's body and header maps.
//
// Rules, applied per descriptor in list order (last write wins on key
// collisions):
//   - type "body", param "fullName" or "name": the outgoing key is the
//     descriptor's value and the outgoing value is "FirstName LastName"
//     (trimmed, single space).
//   - type "body", isCustom: the outgoing key is the descriptor's param and
//     the outgoing value is the descriptor's value, verbatim.
//   - type "body" otherwise: the outgoing key is the descriptor's value and
//     the outgoing value is the lead field named by param. Unknown params
//     resolve to an empty value and are still included, never an error.
//   - type "header": headers[param] = value, verbatim.
//
// BuildRequest is a pure function: no I/O, deterministic for identical
// inputs.
func BuildRequest(attributes []domain.RouteAttribute, lead *domain.Lead) (body map[string]string, headers map[string]string) {
	body = make(map[string]string)
	headers = make(map[string]string)

	for _, attr := range attributes {
		switch attr.Type {
		case domain.AttributeBody:
			switch {
			case attr.Param == "fullName" || attr.Param == "name":
				body[attr.Value] = strings.TrimSpace(lead.FirstName + " " + lead.LastName)
			case attr.IsCustom:
				body[attr.Param] = attr.Value
			default:
				body[attr.Value] = leadField(lead, attr.Param)
			}
		case domain.AttributeHeader:
			headers[attr.Param] = attr.Value
		}
	}
	return body, headers
}

// leadField resolves a descriptor param to the lead field of the same name.
// Unknown names yield "".
func leadField(lead *domain.Lead, param string) string {
	switch param {
	case "id":
		return lead.ID
	case "firstName":
		return lead.FirstName
	case "lastName":
		return lead.LastName
	case "phone":
		return lead.Phone
	case "email":
		return lead.Email
	case "address":
		return lead.Address
	case "ip":
		return lead.IP
	case "country":
		return lead.Country
	case "sub1":
		return lead.Sub1
	case "sub2":
		return lead.Sub2
	case "sub3":
		return lead.Sub3
	case "sub4":
		return lead.Sub4
	case "status":
		return string(lead.Status)
	default:
		return ""
	}
}
