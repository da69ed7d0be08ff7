package memory

import "encoding/json"

// Field is an optional patch value with a presence flag. A zero Field
// means "leave unchanged"; Set with Null means "set to null". This is
// what lets a partial update distinguish an absent key from an explicit
// null in the request body.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON marks the field as present. encoding/json invokes this
// even for a literal null, which is exactly the presence signal we need;
// absent keys never reach it and leave the zero Field.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if string(b) == "null" {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(b, &f.Value)
}

// ProfilePatch enumerates the updatable profile fields. Only fields
// present in the request are applied; everything else is left untouched.
type ProfilePatch struct {
	Name               Field[string]          `json:"name"`
	PersonalityType    Field[string]          `json:"personality_type"`
	CommunicationStyle Field[string]          `json:"communication_style"`
	OnboardingComplete Field[bool]            `json:"onboarding_complete"`
	Preferences        Field[json.RawMessage] `json:"preferences"`
}

// Fields returns the names of the patch fields that are present,
// in a stable order.
func (p ProfilePatch) Fields() []string {
	var out []string
	if p.Name.Set {
		out = append(out, "name")
	}
	if p.PersonalityType.Set {
		out = append(out, "personality_type")
	}
	if p.CommunicationStyle.Set {
		out = append(out, "communication_style")
	}
	if p.OnboardingComplete.Set {
		out = append(out, "onboarding_complete")
	}
	if p.Preferences.Set {
		out = append(out, "preferences")
	}
	return out
}

// Empty reports whether the patch contains no recognized fields.
func (p ProfilePatch) Empty() bool {
	return !p.Name.Set && !p.PersonalityType.Set && !p.CommunicationStyle.Set &&
		!p.OnboardingComplete.Set && !p.Preferences.Set
}

// apply mutates the profile in place according to the patch.
func (p ProfilePatch) apply(u *UserProfile) {
	if p.Name.Set {
		u.Name = optionalString(p.Name)
	}
	if p.PersonalityType.Set {
		u.PersonalityType = optionalString(p.PersonalityType)
	}
	if p.CommunicationStyle.Set {
		u.CommunicationStyle = optionalString(p.CommunicationStyle)
	}
	if p.OnboardingComplete.Set {
		u.OnboardingComplete = !p.OnboardingComplete.Null && p.OnboardingComplete.Value
	}
	if p.Preferences.Set {
		if p.Preferences.Null {
			u.Preferences = nil
		} else {
			u.Preferences = p.Preferences.Value
		}
	}
}

func optionalString(f Field[string]) *string {
	if f.Null {
		return nil
	}
	v := f.Value
	return &v
}
