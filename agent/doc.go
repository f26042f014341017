// Copyright (c) Parliament Authors.
// Licensed under the MIT License.

/*
Package agent implements the parliament's analysts.

Every role — generalist, specialists, sourcer — is served by the same
concrete Member type; differentiation comes purely from the injected
PersonaConfig (persona text and token budget). The underlying model call is
abstracted behind the Completer interface and stays outside this module.

A Member builds a structured prompt (task, accumulated context, retrieved
knowledge, peer responses, compact round history), invokes the Completer, and
parses the CROSS score block out of the free-text reply. Unparsable score
blocks degrade to neutral midpoint scores instead of failing the round.
*/
package agent
