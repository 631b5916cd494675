package toolchain

// Name identifies a compiler family.
type Name string

// Supported toolchains.
const (
	// None is the sentinel for "no toolchain chosen".
	None Name = "None"

	KeilC51    Name = "Keil_C51"
	SDCC       Name = "SDCC"
	IARSTM8    Name = "IAR_STM8"
	CosmicSTM8 Name = "COSMIC_STM8"
	AC5        Name = "AC5"
	AC6        Name = "AC6"
	GCC        Name = "GCC"
	IARARM     Name = "IAR_ARM"
	LLVMARM    Name = "LLVM_ARM"
	RISCVGCC   Name = "RISCV_GCC"
	MIPSGCC    Name = "MIPS_GCC"
	AnyGCC     Name = "ANY_GCC"
)

// Kind is the hardware category of a project.
type Kind string

// Project kinds.
const (
	KindC51    Kind = "C51"
	KindARM    Kind = "ARM"
	KindRISCV  Kind = "RISC-V"
	KindMIPS   Kind = "MIPS"
	KindAnyGCC Kind = "ANY-GCC"
)

// kindToolchains lists the selectable toolchains per kind. The first entry
// is the kind's canonical default.
var kindToolchains = map[Kind][]Name{
	KindC51:    {KeilC51, SDCC, IARSTM8, CosmicSTM8},
	KindARM:    {AC5, AC6, GCC, IARARM, LLVMARM},
	KindRISCV:  {RISCVGCC},
	KindMIPS:   {MIPSGCC},
	KindAnyGCC: {AnyGCC},
}

// Kinds returns every known project kind.
func Kinds() []Kind {
	return []Kind{KindC51, KindARM, KindRISCV, KindMIPS, KindAnyGCC}
}

// ValidKind reports whether k is a known project kind.
func ValidKind(k Kind) bool {
	_, ok := kindToolchains[k]
	return ok
}

// DefaultFor returns the canonical toolchain of a kind.
func DefaultFor(k Kind) (Name, bool) {
	names, ok := kindToolchains[k]
	if !ok {
		return None, false
	}
	return names[0], true
}

var descriptions = map[Name]string{
	KeilC51:    "Keil C51 Compiler (8051)",
	SDCC:       "Small Device C Compiler",
	IARSTM8:    "IAR C/C++ Compiler for STM8",
	CosmicSTM8: "COSMIC C Compiler for STM8",
	AC5:        "ARM Compiler 5 (armcc)",
	AC6:        "ARM Compiler 6 (armclang)",
	GCC:        "GNU Arm Embedded Toolchain",
	IARARM:     "IAR C/C++ Compiler for ARM",
	LLVMARM:    "LLVM Embedded Toolchain for Arm",
	RISCVGCC:   "GNU RISC-V Toolchain",
	MIPSGCC:    "GNU MIPS Toolchain",
	AnyGCC:     "Any GCC Toolchain",
}

// Describe returns display text for a toolchain, or "" when unknown.
func Describe(name Name) string {
	return descriptions[name]
}
