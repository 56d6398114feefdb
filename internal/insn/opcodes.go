package insn

// Opcode is a JVM instruction opcode. Pseudo instructions (labels, line
// markers) report OpNone.
type Opcode int16

// OpNone is returned by pseudo instructions.
const OpNone Opcode = -1

// JVM opcodes. The shorthand forms (iload_0, istore_3, ...) are decoded into
// their general form and re-selected when encoding, so they have no constant.
const (
	Nop        Opcode = 0x00
	AconstNull Opcode = 0x01
	IconstM1   Opcode = 0x02
	Iconst0    Opcode = 0x03
	Iconst1    Opcode = 0x04
	Iconst2    Opcode = 0x05
	Iconst3    Opcode = 0x06
	Iconst4    Opcode = 0x07
	Iconst5    Opcode = 0x08
	Lconst0    Opcode = 0x09
	Lconst1    Opcode = 0x0a
	Fconst0    Opcode = 0x0b
	Fconst1    Opcode = 0x0c
	Fconst2    Opcode = 0x0d
	Dconst0    Opcode = 0x0e
	Dconst1    Opcode = 0x0f
	Bipush     Opcode = 0x10
	Sipush     Opcode = 0x11
	LdcOp      Opcode = 0x12
	LdcW       Opcode = 0x13
	Ldc2W      Opcode = 0x14

	Iload Opcode = 0x15
	Lload Opcode = 0x16
	Fload Opcode = 0x17
	Dload Opcode = 0x18
	Aload Opcode = 0x19

	Iaload Opcode = 0x2e
	Laload Opcode = 0x2f
	Faload Opcode = 0x30
	Daload Opcode = 0x31
	Aaload Opcode = 0x32
	Baload Opcode = 0x33
	Caload Opcode = 0x34
	Saload Opcode = 0x35

	Istore Opcode = 0x36
	Lstore Opcode = 0x37
	Fstore Opcode = 0x38
	Dstore Opcode = 0x39
	Astore Opcode = 0x3a

	Iastore Opcode = 0x4f
	Lastore Opcode = 0x50
	Fastore Opcode = 0x51
	Dastore Opcode = 0x52
	Aastore Opcode = 0x53
	Bastore Opcode = 0x54
	Castore Opcode = 0x55
	Sastore Opcode = 0x56

	Pop    Opcode = 0x57
	Pop2   Opcode = 0x58
	Dup    Opcode = 0x59
	DupX1  Opcode = 0x5a
	DupX2  Opcode = 0x5b
	Dup2   Opcode = 0x5c
	Dup2X1 Opcode = 0x5d
	Dup2X2 Opcode = 0x5e
	Swap   Opcode = 0x5f

	Iadd  Opcode = 0x60
	Ladd  Opcode = 0x61
	Fadd  Opcode = 0x62
	Dadd  Opcode = 0x63
	Isub  Opcode = 0x64
	Lsub  Opcode = 0x65
	Fsub  Opcode = 0x66
	Dsub  Opcode = 0x67
	Imul  Opcode = 0x68
	Lmul  Opcode = 0x69
	Fmul  Opcode = 0x6a
	Dmul  Opcode = 0x6b
	Idiv  Opcode = 0x6c
	Ldiv  Opcode = 0x6d
	Fdiv  Opcode = 0x6e
	Ddiv  Opcode = 0x6f
	Irem  Opcode = 0x70
	Lrem  Opcode = 0x71
	Frem  Opcode = 0x72
	Drem  Opcode = 0x73
	Ineg  Opcode = 0x74
	Lneg  Opcode = 0x75
	Fneg  Opcode = 0x76
	Dneg  Opcode = 0x77
	Ishl  Opcode = 0x78
	Lshl  Opcode = 0x79
	Ishr  Opcode = 0x7a
	Lshr  Opcode = 0x7b
	Iushr Opcode = 0x7c
	Lushr Opcode = 0x7d
	Iand  Opcode = 0x7e
	Land  Opcode = 0x7f
	Ior   Opcode = 0x80
	Lor   Opcode = 0x81
	Ixor  Opcode = 0x82
	Lxor  Opcode = 0x83
	Iinc  Opcode = 0x84

	I2l Opcode = 0x85
	I2f Opcode = 0x86
	I2d Opcode = 0x87
	L2i Opcode = 0x88
	L2f Opcode = 0x89
	L2d Opcode = 0x8a
	F2i Opcode = 0x8b
	F2l Opcode = 0x8c
	F2d Opcode = 0x8d
	D2i Opcode = 0x8e
	D2l Opcode = 0x8f
	D2f Opcode = 0x90
	I2b Opcode = 0x91
	I2c Opcode = 0x92
	I2s Opcode = 0x93

	Lcmp  Opcode = 0x94
	Fcmpl Opcode = 0x95
	Fcmpg Opcode = 0x96
	Dcmpl Opcode = 0x97
	Dcmpg Opcode = 0x98

	Ifeq     Opcode = 0x99
	Ifne     Opcode = 0x9a
	Iflt     Opcode = 0x9b
	Ifge     Opcode = 0x9c
	Ifgt     Opcode = 0x9d
	Ifle     Opcode = 0x9e
	IfIcmpeq Opcode = 0x9f
	IfIcmpne Opcode = 0xa0
	IfIcmplt Opcode = 0xa1
	IfIcmpge Opcode = 0xa2
	IfIcmpgt Opcode = 0xa3
	IfIcmple Opcode = 0xa4
	IfAcmpeq Opcode = 0xa5
	IfAcmpne Opcode = 0xa6
	Goto     Opcode = 0xa7
	Jsr      Opcode = 0xa8
	Ret      Opcode = 0xa9

	Tableswitch  Opcode = 0xaa
	Lookupswitch Opcode = 0xab

	Ireturn Opcode = 0xac
	Lreturn Opcode = 0xad
	Freturn Opcode = 0xae
	Dreturn Opcode = 0xaf
	Areturn Opcode = 0xb0
	Return  Opcode = 0xb1

	Getstatic Opcode = 0xb2
	Putstatic Opcode = 0xb3
	Getfield  Opcode = 0xb4
	Putfield  Opcode = 0xb5

	Invokevirtual   Opcode = 0xb6
	Invokespecial   Opcode = 0xb7
	Invokestatic    Opcode = 0xb8
	Invokeinterface Opcode = 0xb9
	Invokedynamic   Opcode = 0xba

	New          Opcode = 0xbb
	Newarray     Opcode = 0xbc
	Anewarray    Opcode = 0xbd
	Arraylength  Opcode = 0xbe
	Athrow       Opcode = 0xbf
	Checkcast    Opcode = 0xc0
	Instanceof   Opcode = 0xc1
	Monitorenter Opcode = 0xc2
	Monitorexit  Opcode = 0xc3

	Wide           Opcode = 0xc4
	Multianewarray Opcode = 0xc5
	Ifnull         Opcode = 0xc6
	Ifnonnull      Opcode = 0xc7
	GotoW          Opcode = 0xc8
	JsrW           Opcode = 0xc9
)

var opNames = map[Opcode]string{
	Nop: "nop", AconstNull: "aconst_null",
	IconstM1: "iconst_m1", Iconst0: "iconst_0", Iconst1: "iconst_1", Iconst2: "iconst_2",
	Iconst3: "iconst_3", Iconst4: "iconst_4", Iconst5: "iconst_5",
	Lconst0: "lconst_0", Lconst1: "lconst_1",
	Fconst0: "fconst_0", Fconst1: "fconst_1", Fconst2: "fconst_2",
	Dconst0: "dconst_0", Dconst1: "dconst_1",
	Bipush: "bipush", Sipush: "sipush", LdcOp: "ldc", LdcW: "ldc_w", Ldc2W: "ldc2_w",
	Iload: "iload", Lload: "lload", Fload: "fload", Dload: "dload", Aload: "aload",
	Iaload: "iaload", Laload: "laload", Faload: "faload", Daload: "daload",
	Aaload: "aaload", Baload: "baload", Caload: "caload", Saload: "saload",
	Istore: "istore", Lstore: "lstore", Fstore: "fstore", Dstore: "dstore", Astore: "astore",
	Iastore: "iastore", Lastore: "lastore", Fastore: "fastore", Dastore: "dastore",
	Aastore: "aastore", Bastore: "bastore", Castore: "castore", Sastore: "sastore",
	Pop: "pop", Pop2: "pop2", Dup: "dup", DupX1: "dup_x1", DupX2: "dup_x2",
	Dup2: "dup2", Dup2X1: "dup2_x1", Dup2X2: "dup2_x2", Swap: "swap",
	Iadd: "iadd", Ladd: "ladd", Fadd: "fadd", Dadd: "dadd",
	Isub: "isub", Lsub: "lsub", Fsub: "fsub", Dsub: "dsub",
	Imul: "imul", Lmul: "lmul", Fmul: "fmul", Dmul: "dmul",
	Idiv: "idiv", Ldiv: "ldiv", Fdiv: "fdiv", Ddiv: "ddiv",
	Irem: "irem", Lrem: "lrem", Frem: "frem", Drem: "drem",
	Ineg: "ineg", Lneg: "lneg", Fneg: "fneg", Dneg: "dneg",
	Ishl: "ishl", Lshl: "lshl", Ishr: "ishr", Lshr: "lshr", Iushr: "iushr", Lushr: "lushr",
	Iand: "iand", Land: "land", Ior: "ior", Lor: "lor", Ixor: "ixor", Lxor: "lxor",
	Iinc: "iinc",
	I2l:  "i2l", I2f: "i2f", I2d: "i2d", L2i: "l2i", L2f: "l2f", L2d: "l2d",
	F2i: "f2i", F2l: "f2l", F2d: "f2d", D2i: "d2i", D2l: "d2l", D2f: "d2f",
	I2b: "i2b", I2c: "i2c", I2s: "i2s",
	Lcmp: "lcmp", Fcmpl: "fcmpl", Fcmpg: "fcmpg", Dcmpl: "dcmpl", Dcmpg: "dcmpg",
	Ifeq: "ifeq", Ifne: "ifne", Iflt: "iflt", Ifge: "ifge", Ifgt: "ifgt", Ifle: "ifle",
	IfIcmpeq: "if_icmpeq", IfIcmpne: "if_icmpne", IfIcmplt: "if_icmplt",
	IfIcmpge: "if_icmpge", IfIcmpgt: "if_icmpgt", IfIcmple: "if_icmple",
	IfAcmpeq: "if_acmpeq", IfAcmpne: "if_acmpne",
	Goto: "goto", Jsr: "jsr", Ret: "ret",
	Tableswitch: "tableswitch", Lookupswitch: "lookupswitch",
	Ireturn: "ireturn", Lreturn: "lreturn", Freturn: "freturn", Dreturn: "dreturn",
	Areturn: "areturn", Return: "return",
	Getstatic: "getstatic", Putstatic: "putstatic", Getfield: "getfield", Putfield: "putfield",
	Invokevirtual: "invokevirtual", Invokespecial: "invokespecial", Invokestatic: "invokestatic",
	Invokeinterface: "invokeinterface", Invokedynamic: "invokedynamic",
	New: "new", Newarray: "newarray", Anewarray: "anewarray", Arraylength: "arraylength",
	Athrow: "athrow", Checkcast: "checkcast", Instanceof: "instanceof",
	Monitorenter: "monitorenter", Monitorexit: "monitorexit",
	Wide: "wide", Multianewarray: "multianewarray", Ifnull: "ifnull", Ifnonnull: "ifnonnull",
	GotoW: "goto_w", JsrW: "jsr_w",
}

// String returns the mnemonic of the opcode.
func (o Opcode) String() string {
	if o == OpNone {
		return "<pseudo>"
	}
	if name, ok := opNames[o]; ok {
		return name
	}
	return "op_" + hexByte(byte(o))
}

// ParseOpcode returns the opcode with the given mnemonic.
func ParseOpcode(name string) (Opcode, bool) {
	for op, n := range opNames {
		if n == name {
			return op, true
		}
	}
	return OpNone, false
}

func hexByte(b byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0x0f]})
}

// IsReturn reports whether the opcode returns from the method.
func IsReturn(op Opcode) bool {
	return op >= Ireturn && op <= Return
}

// IsConditional reports whether the opcode is a conditional branch.
func IsConditional(op Opcode) bool {
	return (op >= Ifeq && op <= IfAcmpne) || op == Ifnull || op == Ifnonnull
}

// IsLoad reports whether the opcode loads a local variable.
func IsLoad(op Opcode) bool {
	return op >= Iload && op <= Aload
}

// IsFieldAccess reports whether the opcode reads or writes a field.
func IsFieldAccess(op Opcode) bool {
	return op >= Getstatic && op <= Putfield
}

// IsTerminal reports whether control never falls through to the next instruction.
func IsTerminal(op Opcode) bool {
	switch op {
	case Goto, GotoW, Ret, Tableswitch, Lookupswitch, Athrow:
		return true
	}
	return IsReturn(op)
}
