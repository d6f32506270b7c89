/*
Package domain contains the core domain models of the parley dialogue orchestrator.

It defines the values exchanged between the session controller, the host and the
narrative interpreter. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - DialogueLine: One unit of produced dialogue (text, tags, choices and a Cue).
  - DialogueChoice: A selectable option, valid only within the line that produced it.
  - DialogueTag: The structured form of a raw annotation string.
  - Cue: What the host must do next (continue, choose or stop).
  - Value: The closed set of typed interpreter variables (Bool, Int, Float, String, List).
  - Snapshot: A serializable, point-in-time export of tracked variables.
  - Session: The identity of the single live dialogue of a manager.
*/
package domain
