package testutil

// SchemaJSON is a valid communication schema with one directory holding
// two files and one event flow. Rendering it yields src/README.md and
// src/AGENT.md.
const SchemaJSON = `{
  "version": "1.0",
  "project_name": "todo-app",
  "description": "A todo app",
  "global_communication_protocols": {"http": "REST"},
  "directory_structure": {
    "src": {
      "criticality": 9,
      "description": "Application sources",
      "files": {
        "main": {"criticality": 10, "type": "entrypoint", "purpose": "Starts the app", "dependencies": ["store"]},
        "store": {"criticality": 7, "type": "library", "purpose": "Persists todos", "dependencies": []}
      }
    }
  },
  "event_flows": {"src": [{"name": "create todo", "description": "main validates then store persists"}]},
  "communication_matrix": {},
  "platform_specific": {},
  "error_propagation": {}
}`
