// Package profile loads saved requests from YAML and turns them into
// configured request builders.
//
// A profile looks like:
//
//	name: create-user
//	url: "{{baseUrl}}/users"
//	method: POST
//	headers:
//	  Content-Type: application/json
//	form:
//	  name: "{{name}}"
//	auth:
//	  username: admin
//	  password: "{{$ADMIN_PASSWORD}}"
//	  scheme: digest
//	captures:
//	  - name: id
//	    source: body
//	    path: data.id
package profile
