// Package emit renders validated domain models into C++ headers.
//
// # Overview
//
// The emitter consumes fully resolved domains and the allocated topic
// identifier table; it performs no aggregation or validation of its
// own. Each domain renders through a text template into one header
// (plus the derived messaging limits header for the task domain):
//
//   - generated_tasks.hpp: task table, message structs, topic enum,
//     pack/unpack helpers, and the system setup function.
//   - messaging_config.hpp: compile-time messaging limits derived from
//     the merged channels and the messaging root.
//   - generated_packet_config.hpp: framing constants, opcode enum, and
//     parser/dispatcher type aliases.
//   - generated_command_table.hpp: parameter structs, field layouts,
//     decode and encode helpers, and the dispatcher setup.
//
// Templates are embedded; a template directory may override them file
// by file, and a missing override file fails emitter construction.
// Output is deterministic: rendering the same model twice produces
// byte-identical headers.
package emit
