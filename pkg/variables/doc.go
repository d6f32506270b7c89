/*
Package variables mirrors an interpreter's typed globals into a serializable dictionary.

A Bridge is populated once from an interpreter (InitializeFrom), can be exported to and
imported from a domain.Snapshot while idle, and, while attached to a session, pushes its
values into the interpreter and records every change the interpreter reports.

The snapshot exchange format (codec.go) keeps one ordered list per value kind:

	{
	  "booleans": [{"name": "met_guard", "value": true}],
	  "integers": [{"name": "gold", "value": 12}],
	  "lists": [{
	    "name": "inventory",
	    "items": [{"origin": "Items", "item": "sword", "value": 2}],
	    "origins": [{"name": "Items", "items": [{"item": "key", "value": 1}, {"item": "sword", "value": 2}]}]
	  }]
	}
*/
package variables
