/*
Package story is a small branching-story interpreter implementing ports.Interpreter.

Stories are declared in YAML or JSON:

	title: Market
	lists:
	  Items: [key, sword]
	variables:
	  gold: 10
	  met_guard: false
	  inventory: {origins: [Items], items: [Items.key]}
	start:
	  - text: "You arrive at the market. You have {gold} coins."
	    tags: ["speaker=Narrator"]
	  - divert: Market
	knots:
	  - name: Market
	    flow:
	      - text: "A merchant waves."
	      - choices:
	          - text: "Buy a sword"
	            when: "gold >= 5 and not has('inventory', 'Items.sword')"
	            set: {gold: "gold - 5"}
	            add: {inventory: [Items.sword]}
	            divert: Market.after
	          - text: "Leave"
	            divert: END
	    stitches:
	      - name: after
	        flow:
	          - text: "Pleasure doing business."

Conditions (when) and assignments (set) are Lua expressions evaluated with the
scalar globals in scope; has(list, item) and count(list) query list variables.
Text may reference globals as {name}.
*/
package story
