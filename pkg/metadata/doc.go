/*
Package metadata implements the layered metadata configuration engine: an
ordered list of directives, each with an optional pattern filter expression
evaluated against a pattern.Context, folds into an effective types.JobSpec starting from DefaultMetadata.

Directive fields fall into three shapes:
  - plain scalars (network, user, group, timeout, ...) that replace-or-carry
  - image-inheritance fields (working_directory, layers, environment) that
    may instead delegate to the directive's active image
  - additive fields (added_layers, added_environment, added_mounts,
    added_devices) that always append or union regardless of whether the
    corresponding base field was replaced or carried

Fold order matters: environment layers carry an Extend flag so that a layer
contributed by added_environment can reference variables set by strictly
earlier layers, and directive order determines which values later directives
see as "earlier".

Directive files are TOML, decoded with pelletier/go-toml/v2's
DisallowUnknownFields so that an unrecognized field is a hard parse error,
matching the spec's directive file format. image-inheritance fields
(working_directory, layers, environment) are decoded as "any" because TOML
has no native sum type: each accepts either a concrete value or the literal
string "image".
*/
package metadata
